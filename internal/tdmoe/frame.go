// Package tdmoe implements TDMoE Frame I/O (spec.md §4.B): 125 µs framed
// groups of 8-bit timeslot samples exchanged over a layer-2 transport, with
// frame-slip detection by frame sequence number.
// Raw L2 socket access is platform-specific and is left to the host; this
// package defines the FrameIO seam plus an in-process loopback
// implementation for tests and single-box demos.
package tdmoe

import (
	"context"
	"time"
)

// SpanType identifies the TDM framing standard.
type SpanType int

const (
	SpanE1 SpanType = iota // 32 timeslots
	SpanT1                 // 24 timeslots
)

// Channels returns the timeslot count for the span type.
func (t SpanType) Channels() int {
	if t == SpanT1 {
		return 24
	}
	return 32
}

// FrameInterval is the fixed 125 µs framing period (8 kHz sampling).
const FrameInterval = 125 * time.Microsecond

// Frame is one 125 µs group of per-channel 8-bit samples.
type Frame struct {
	Timestamp time.Time
	Samples   []byte // one byte per timeslot, Span.Channels() long
	Seq       uint64
}

// FrameIO is the per-span send/receive interface of spec.md §4.B.
type FrameIO interface {
	Read(ctx context.Context, span int) (Frame, error)
	Write(ctx context.Context, span int, frame Frame) error
}
