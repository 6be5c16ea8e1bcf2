// Package sdp builds and parses SDP offers/answers for the B2BUA's two
// legs, extending the teacher's single-hardcoded-codec builder into real
// codec-list offer/answer per spec.md §4.D/§4.E: the B2BUA always
// advertises its own media endpoint, never a pass-through of the peer's,
// and the answered codec is the intersection of the offer with local
// policy, reordered by local preference.
package sdp

import (
	"fmt"
	"strconv"

	"github.com/pion/sdp/v3"
)

// CodecOffer describes one codec entry to place in an m=audio line.
type CodecOffer struct {
	PayloadType int
	RTPMap      string // e.g. "PCMU/8000", "opus/48000/2"
	FMTP        string // optional a=fmtp value without the leading payload type
}

// Endpoint is the local media address/port the B2BUA advertises.
type Endpoint struct {
	Address string
	Port    int
}

// BuildOffer creates an SDP offer advertising endpoint and codecs in the
// given preference order.
func BuildOffer(endpoint Endpoint, codecs []CodecOffer, sessionID, sessionVersion uint64) ([]byte, error) {
	return build(endpoint, codecs, sessionID, sessionVersion, "sendrecv")
}

// BuildAnswer creates an SDP answer advertising endpoint and the single
// negotiated codec.
func BuildAnswer(endpoint Endpoint, chosen CodecOffer, sessionID, sessionVersion uint64) ([]byte, error) {
	return build(endpoint, []CodecOffer{chosen}, sessionID, sessionVersion, "sendrecv")
}

func build(endpoint Endpoint, codecs []CodecOffer, sessionID, sessionVersion uint64, direction string) ([]byte, error) {
	if len(codecs) == 0 {
		return nil, fmt.Errorf("sdp: build: no codecs to offer")
	}

	formats := make([]string, len(codecs))
	for i, c := range codecs {
		formats[i] = strconv.Itoa(c.PayloadType)
	}

	desc := &sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       "gateway",
			SessionID:      sessionID,
			SessionVersion: sessionVersion,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: endpoint.Address,
		},
		SessionName: "redfire-gateway",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: endpoint.Address},
		},
		TimeDescriptions: []sdp.TimeDescription{{Timing: sdp.Timing{StartTime: 0, StopTime: 0}}},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "audio",
					Port:    sdp.RangedPort{Value: endpoint.Port},
					Protos:  []string{"RTP", "AVP"},
					Formats: formats,
				},
				Attributes: attributesFor(codecs, direction),
			},
		},
	}

	b, err := desc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("sdp: marshal: %w", err)
	}
	return b, nil
}

func attributesFor(codecs []CodecOffer, direction string) []sdp.Attribute {
	var attrs []sdp.Attribute
	for _, c := range codecs {
		pt := strconv.Itoa(c.PayloadType)
		attrs = append(attrs, sdp.Attribute{Key: "rtpmap", Value: pt + " " + c.RTPMap})
		if c.FMTP != "" {
			attrs = append(attrs, sdp.Attribute{Key: "fmtp", Value: pt + " " + c.FMTP})
		}
	}
	attrs = append(attrs, sdp.Attribute{Key: "ptime", Value: "20"})
	attrs = append(attrs, sdp.Attribute{Key: direction})
	attrs = append(attrs, sdp.Attribute{Key: "rtcp-mux"})
	return attrs
}

// Offered describes one codec an offer or answer presented, parsed back
// out of a received SDP body.
type Offered struct {
	PayloadType int
	RTPMap      string
}

// Parse extracts the remote endpoint address/port and the ordered list of
// offered codecs from a received SDP body's first audio m= line.
func Parse(body []byte) (Endpoint, []Offered, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(body); err != nil {
		return Endpoint{}, nil, fmt.Errorf("sdp: parse: %w", err)
	}

	addr := ""
	if desc.ConnectionInformation != nil && desc.ConnectionInformation.Address != nil {
		addr = desc.ConnectionInformation.Address.Address
	}

	var audio *sdp.MediaDescription
	for _, md := range desc.MediaDescriptions {
		if md.MediaName.Media == "audio" {
			audio = md
			break
		}
	}
	if audio == nil {
		return Endpoint{}, nil, fmt.Errorf("sdp: parse: no audio media description")
	}
	if audio.ConnectionInformation != nil && audio.ConnectionInformation.Address != nil {
		addr = audio.ConnectionInformation.Address.Address
	}

	rtpmaps := make(map[int]string)
	for _, attr := range audio.Attributes {
		if attr.Key != "rtpmap" {
			continue
		}
		var pt int
		var rest string
		if _, err := fmt.Sscanf(attr.Value, "%d %s", &pt, &rest); err == nil {
			rtpmaps[pt] = rest
		}
	}

	offered := make([]Offered, 0, len(audio.MediaName.Formats))
	for _, f := range audio.MediaName.Formats {
		pt, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		offered = append(offered, Offered{PayloadType: pt, RTPMap: rtpmaps[pt]})
	}

	return Endpoint{Address: addr, Port: audio.MediaName.Port.Value}, offered, nil
}
