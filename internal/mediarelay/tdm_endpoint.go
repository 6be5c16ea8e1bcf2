package mediarelay

import (
	"context"
	"fmt"
	"time"

	"github.com/redfire/gateway/internal/rtpengine"
	"github.com/redfire/gateway/internal/tdmoe"
)

// TDMEndpoint adapts a TDM span+channel to the MediaEndpoint interface so
// the Relay can bridge a TDM leg exactly like an RTP leg: each 125 µs
// TDMoE frame carries one 8-bit sample per timeslot, so a channel's sample
// stream is grouped into packetTimeMS-sized payloads the same shape as an
// RTP media payload (one encoded byte per 8 kHz sample, per spec.md §4.B's
// framing and §4.D's PCMU/PCMA byte-per-sample convention).
type TDMEndpoint struct {
	io      tdmoe.FrameIO
	span    int
	channel int

	packetTimeMS int
	seq          uint16
	ts           uint32

	ctx    context.Context
	cancel context.CancelFunc
}

// NewTDMEndpoint creates a TDMEndpoint reading/writing the given
// span/channel through io.
func NewTDMEndpoint(io tdmoe.FrameIO, span, channel, packetTimeMS int) *TDMEndpoint {
	if packetTimeMS <= 0 {
		packetTimeMS = 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TDMEndpoint{io: io, span: span, channel: channel, packetTimeMS: packetTimeMS, ctx: ctx, cancel: cancel}
}

// samplesPerPacket is fixed by the 125 µs TDMoE frame rate (8 kHz): one
// sample per frame, per channel.
func (e *TDMEndpoint) samplesPerPacket() int {
	return e.packetTimeMS * 8000 / 1000
}

// Send writes payload (one encoded byte per sample) out one TDMoE frame
// per sample on this endpoint's timeslot.
func (e *TDMEndpoint) Send(payload []byte) error {
	for _, sample := range payload {
		frame := tdmoe.Frame{Samples: make([]byte, e.channel+1)}
		frame.Samples[e.channel] = sample
		if err := e.io.Write(e.ctx, e.span, frame); err != nil {
			return fmt.Errorf("mediarelay: tdm send span %d chan %d: %w", e.span, e.channel, err)
		}
	}
	return nil
}

// SendDTMF is not implemented for TDM: inband DTMF is tone-regenerated
// into the audio path by the caller's DTMFBridge, not carried as a
// discrete event the way RFC 2833 is.
func (e *TDMEndpoint) SendDTMF(rtpengine.DTMFEvent) error {
	return fmt.Errorf("mediarelay: SendDTMF not supported on a TDM endpoint; use inband tone regeneration")
}

// ReadLoop accumulates one sample per TDMoE frame into packetTimeMS-sized
// payloads and delivers them via onMedia. TDM has no channel-associated
// discrete DTMF signaling at this layer, so onDTMF is never called; inband
// digits ride the audio path undetected at this layer, matching
// spec.md's treatment of inband as tone-in-the-signal rather than an
// out-of-band event.
func (e *TDMEndpoint) ReadLoop(onMedia func(rtpengine.Packet), onDTMF func(rtpengine.DTMFEvent)) error {
	buf := make([]byte, 0, e.samplesPerPacket())
	for {
		frame, err := e.io.Read(e.ctx, e.span)
		if err != nil {
			if e.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("mediarelay: tdm read span %d: %w", e.span, err)
		}
		if e.channel >= len(frame.Samples) {
			continue
		}
		buf = append(buf, frame.Samples[e.channel])
		if len(buf) < e.samplesPerPacket() {
			continue
		}

		payload := make([]byte, len(buf))
		copy(payload, buf)
		buf = buf[:0]

		if onMedia != nil {
			samplesPerPacket := uint32(e.samplesPerPacket())
			onMedia(rtpengine.Packet{
				Sequence:  e.nextSeq(),
				Timestamp: e.nextTS(samplesPerPacket),
				Arrival:   time.Now(),
				Payload:   payload,
			})
		}
	}
}

func (e *TDMEndpoint) nextSeq() uint16 {
	e.seq++
	return e.seq
}

func (e *TDMEndpoint) nextTS(samplesPerPacket uint32) uint32 {
	ts := e.ts
	e.ts += samplesPerPacket
	return ts
}

// Close stops this endpoint's read loop.
func (e *TDMEndpoint) Close() error {
	e.cancel()
	return nil
}

var _ MediaEndpoint = (*TDMEndpoint)(nil)
