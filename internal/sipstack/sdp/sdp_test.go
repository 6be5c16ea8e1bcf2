package sdp

import (
	"strings"
	"testing"
)

func TestBuildOfferIncludesAllCodecs(t *testing.T) {
	codecs := []CodecOffer{
		{PayloadType: 0, RTPMap: "PCMU/8000"},
		{PayloadType: 8, RTPMap: "PCMA/8000"},
	}
	body, err := BuildOffer(Endpoint{Address: "10.0.0.1", Port: 20000}, codecs, 1, 1)
	if err != nil {
		t.Fatalf("BuildOffer() error = %v", err)
	}
	s := string(body)
	if !strings.Contains(s, "m=audio 20000 RTP/AVP 0 8") {
		t.Errorf("offer missing m=audio line with both payload types: %s", s)
	}
	if !strings.Contains(s, "a=rtpmap:0 PCMU/8000") {
		t.Errorf("offer missing PCMU rtpmap: %s", s)
	}
	if !strings.Contains(s, "a=rtpmap:8 PCMA/8000") {
		t.Errorf("offer missing PCMA rtpmap: %s", s)
	}
}

func TestBuildOfferRejectsEmptyCodecList(t *testing.T) {
	if _, err := BuildOffer(Endpoint{Address: "10.0.0.1", Port: 20000}, nil, 1, 1); err == nil {
		t.Errorf("BuildOffer() with no codecs error = nil, want error")
	}
}

func TestBuildAnswerAdvertisesSingleCodec(t *testing.T) {
	chosen := CodecOffer{PayloadType: 8, RTPMap: "PCMA/8000"}
	body, err := BuildAnswer(Endpoint{Address: "10.0.0.2", Port: 30000}, chosen, 2, 1)
	if err != nil {
		t.Fatalf("BuildAnswer() error = %v", err)
	}
	s := string(body)
	if !strings.Contains(s, "m=audio 30000 RTP/AVP 8") {
		t.Errorf("answer m=audio line wrong: %s", s)
	}
	if strings.Contains(s, "PCMU") {
		t.Errorf("answer should only advertise the chosen codec: %s", s)
	}
}

func TestParseRoundTripsOffer(t *testing.T) {
	codecs := []CodecOffer{
		{PayloadType: 0, RTPMap: "PCMU/8000"},
		{PayloadType: 101, RTPMap: "telephone-event/8000", FMTP: "0-15"},
	}
	body, err := BuildOffer(Endpoint{Address: "192.168.1.5", Port: 40000}, codecs, 5, 1)
	if err != nil {
		t.Fatalf("BuildOffer() error = %v", err)
	}

	endpoint, offered, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if endpoint.Address != "192.168.1.5" || endpoint.Port != 40000 {
		t.Errorf("parsed endpoint = %+v, want {192.168.1.5 40000}", endpoint)
	}
	if len(offered) != 2 {
		t.Fatalf("parsed %d codecs, want 2", len(offered))
	}
	if offered[0].PayloadType != 0 || offered[0].RTPMap != "PCMU/8000" {
		t.Errorf("offered[0] = %+v, want {0 PCMU/8000}", offered[0])
	}
	if offered[1].PayloadType != 101 {
		t.Errorf("offered[1].PayloadType = %d, want 101", offered[1].PayloadType)
	}
}

func TestParseRejectsMissingAudioMediaDescription(t *testing.T) {
	// Minimal valid SDP with only a video media description.
	raw := "v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\ns=-\r\nc=IN IP4 127.0.0.1\r\nt=0 0\r\nm=video 5000 RTP/AVP 96\r\n"
	if _, _, err := Parse([]byte(raw)); err == nil {
		t.Errorf("Parse() of video-only SDP error = nil, want error")
	}
}
