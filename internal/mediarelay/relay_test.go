package mediarelay

import (
	"sync"
	"testing"
	"time"

	"github.com/redfire/gateway/internal/codec"
	"github.com/redfire/gateway/internal/rtpengine"
)

// fakeEndpoint is an in-memory MediaEndpoint for testing the relay's
// forwarding and DTMF bridging without real sockets.
type fakeEndpoint struct {
	mu       sync.Mutex
	sent     [][]byte
	sentDTMF []rtpengine.DTMFEvent

	incoming chan rtpengine.Packet
	dtmfIn   chan rtpengine.DTMFEvent
	closed   chan struct{}
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		incoming: make(chan rtpengine.Packet, 8),
		dtmfIn:   make(chan rtpengine.DTMFEvent, 8),
		closed:   make(chan struct{}),
	}
}

func (f *fakeEndpoint) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeEndpoint) SendDTMF(ev rtpengine.DTMFEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentDTMF = append(f.sentDTMF, ev)
	return nil
}

func (f *fakeEndpoint) ReadLoop(onMedia func(rtpengine.Packet), onDTMF func(rtpengine.DTMFEvent)) error {
	for {
		select {
		case p := <-f.incoming:
			onMedia(p)
		case ev := <-f.dtmfIn:
			if onDTMF != nil {
				onDTMF(ev)
			}
		case <-f.closed:
			return nil
		}
	}
}

func (f *fakeEndpoint) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func (f *fakeEndpoint) lastSent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func TestRelayForwardsPassthroughAudio(t *testing.T) {
	reg := codec.NewRegistry()
	pcmu, _ := reg.Get(codec.PCMU)

	a := newFakeEndpoint()
	b := newFakeEndpoint()
	relay, err := New("r1", a, b, pcmu, pcmu, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer relay.Close()

	payload := []byte{1, 2, 3, 4}
	a.incoming <- rtpengine.Packet{Payload: payload}

	deadline := time.After(time.Second)
	for {
		if got := b.lastSent(); got != nil {
			if string(got) != string(payload) {
				t.Fatalf("forwarded payload = %v, want %v", got, payload)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("payload never forwarded A->B")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRelayTranscodesAcrossCodecs(t *testing.T) {
	reg := codec.NewRegistry()
	pcmu, _ := reg.Get(codec.PCMU)
	pcma, _ := reg.Get(codec.PCMA)

	a := newFakeEndpoint()
	b := newFakeEndpoint()
	relay, err := New("r2", a, b, pcmu, pcma, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer relay.Close()

	ulaw, _ := pcmu.Encode([]int16{100, -200, 300, -400})
	a.incoming <- rtpengine.Packet{Payload: ulaw}

	deadline := time.After(time.Second)
	for {
		if got := b.lastSent(); got != nil {
			if len(got) != len(ulaw) {
				t.Fatalf("transcoded payload length = %d, want %d", len(got), len(ulaw))
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("payload never transcoded A->B")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRelayRejectsUnavailableCodecPair(t *testing.T) {
	reg := codec.NewRegistry()
	pcmu, _ := reg.Get(codec.PCMU)
	opus, _ := reg.Get(codec.Opus)

	a := newFakeEndpoint()
	b := newFakeEndpoint()
	if _, err := New("r3", a, b, pcmu, opus, nil); err == nil {
		t.Fatal("New() with an unavailable codec should error")
	}
}

func TestRelayBridgesDTMFRfc2833ToSipInfo(t *testing.T) {
	reg := codec.NewRegistry()
	pcmu, _ := reg.Get(codec.PCMU)

	a := newFakeEndpoint()
	b := newFakeEndpoint()

	sender := &recordingSIPInfoSender{}
	bridge := NewDTMFBridge(
		DTMFSide{Method: DTMFRfc2833, Endpoint: a},
		DTMFSide{Method: DTMFSipInfo, SIPInfo: sender},
	)

	relay, err := New("r4", a, b, pcmu, pcmu, bridge)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer relay.Close()

	five, _ := rtpengine.RuneToEvent('5')
	a.dtmfIn <- rtpengine.DTMFEvent{Event: five, Duration: 800, EndOfEvent: true}

	deadline := time.After(time.Second)
	for {
		sender.mu.Lock()
		n := len(sender.digits)
		sender.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("digit never relayed via SIP INFO")
		case <-time.After(time.Millisecond):
		}
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.digits[0] != '5' {
		t.Errorf("relayed digit = %q, want '5'", sender.digits[0])
	}
	if len(a.sentDTMF) != 0 {
		t.Error("digit leaked back onto the RFC2833 side's own audio path")
	}
}

type recordingSIPInfoSender struct {
	mu      sync.Mutex
	digits  []rune
	durations []int
}

func (s *recordingSIPInfoSender) SendDTMFInfo(digit rune, durationMS int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digits = append(s.digits, digit)
	s.durations = append(s.durations, durationMS)
	return nil
}
