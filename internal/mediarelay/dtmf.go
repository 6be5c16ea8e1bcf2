package mediarelay

import (
	"fmt"

	"github.com/redfire/gateway/internal/rtpengine"
)

// DTMFMethod is the telephone-event carriage a leg negotiated, mirroring
// b2bua.DTMFMethod without importing it (mediarelay sits below b2bua in
// the dependency order; the engine maps its own enum to this one when
// building a Relay).
type DTMFMethod int

const (
	DTMFRfc2833 DTMFMethod = iota
	DTMFSipInfo
	DTMFInband
)

// SIPInfoSender delivers a digit to a leg's far end via SIP INFO
// (application/dtmf-relay, body "Signal=X\nDuration=Nms" per spec.md
// §4.E), for legs whose negotiated DTMF method is SipInfo. Implemented by
// the signaling layer and injected here so mediarelay needn't depend on
// sipstack.
type SIPInfoSender interface {
	SendDTMFInfo(digit rune, durationMS int) error
}

// DTMFSide is one leg's DTMF carriage: how to emit a digit using this
// leg's negotiated method.
type DTMFSide struct {
	Method   DTMFMethod
	Endpoint MediaEndpoint                    // used for Rfc2833 (SendDTMF) and Inband (Send, tone-encoded)
	SIPInfo  SIPInfoSender                    // used for SipInfo
	ToneEnc  func(pcm []int16) ([]byte, error) // this side's codec Encode, for Inband regeneration
}

// DTMFBridge relays a DTMF digit detected on one leg onto the other leg
// using the receiving leg's negotiated method (spec.md §4.G: "DTMF events
// detected on one side are emitted on the other using that side's
// negotiated method"). Digits never enter the audio transcode path.
type DTMFBridge struct {
	a, b DTMFSide
}

// NewDTMFBridge builds a DTMFBridge between two legs.
func NewDTMFBridge(a, b DTMFSide) *DTMFBridge {
	return &DTMFBridge{a: a, b: b}
}

// FromA relays a digit detected on leg A's media onto leg B.
func (d *DTMFBridge) FromA(ev rtpengine.DTMFEvent) error {
	return emit(d.b, ev)
}

// FromB relays a digit detected on leg B's media onto leg A.
func (d *DTMFBridge) FromB(ev rtpengine.DTMFEvent) error {
	return emit(d.a, ev)
}

func emit(side DTMFSide, ev rtpengine.DTMFEvent) error {
	switch side.Method {
	case DTMFRfc2833:
		if side.Endpoint == nil {
			return fmt.Errorf("mediarelay: dtmf: rfc2833 side has no endpoint")
		}
		return side.Endpoint.SendDTMF(ev)
	case DTMFSipInfo:
		if side.SIPInfo == nil {
			return fmt.Errorf("mediarelay: dtmf: sip-info side has no sender")
		}
		durationMS := int(ev.Duration) * 1000 / 8000 // Duration is in 8kHz RTP timestamp units
		if durationMS <= 0 {
			durationMS = 100
		}
		digit, ok := rtpengine.EventToRune(ev.Event)
		if !ok {
			return fmt.Errorf("mediarelay: dtmf: unknown event code %d", ev.Event)
		}
		return side.SIPInfo.SendDTMFInfo(digit, durationMS)
	case DTMFInband:
		if side.Endpoint == nil || side.ToneEnc == nil {
			return fmt.Errorf("mediarelay: dtmf: inband side missing endpoint or encoder")
		}
		tone := synthesizeTone(ev.Event, 160) // 20ms @ 8kHz
		payload, err := side.ToneEnc(tone)
		if err != nil {
			return fmt.Errorf("mediarelay: dtmf: inband encode: %w", err)
		}
		return side.Endpoint.Send(payload)
	default:
		return fmt.Errorf("mediarelay: dtmf: unknown method %d", side.Method)
	}
}

// synthesizeTone generates a representative single-tone PCM burst standing
// in for a DTMF digit's dual-tone signal; true dual-tone synthesis is out
// of scope for this module the same way transcoder codec internals are
// (spec.md §1 Non-goals).
func synthesizeTone(event uint8, samples int) []int16 {
	freq := toneFrequency(event)
	out := make([]int16, samples)
	const sampleRate = 8000
	const amplitude = 8000
	for i := range out {
		phase := 2 * 3.14159265 * freq * float64(i) / sampleRate
		out[i] = int16(amplitude * sinApprox(phase))
	}
	return out
}

func toneFrequency(event uint8) float64 {
	// Low-group frequency only (a single tone stands in for the DTMF pair).
	switch event {
	case 1, 2, 3, 12: // 1,2,3 / A row
		return 697
	case 4, 5, 6, 13: // 4,5,6 / B row
		return 770
	case 7, 8, 9, 14: // 7,8,9 / C row
		return 852
	default: // *,0,# / D row
		return 941
	}
}

// sinApprox avoids pulling in math for one call site; good enough for a
// representative tone burst, not a precision synthesizer.
func sinApprox(x float64) float64 {
	for x > 3.14159265 {
		x -= 2 * 3.14159265
	}
	for x < -3.14159265 {
		x += 2 * 3.14159265
	}
	x2 := x * x
	return x * (1 - x2/6*(1-x2/20*(1-x2/42)))
}
