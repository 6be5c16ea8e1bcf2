package tdmoe

// SlipKind mirrors clock.SlipKind's vocabulary for TDM frame slips
// (spec.md §4.B): a span-local detector doesn't need to import the clock
// package, so the kind is redeclared here and the two are unified by the
// caller that forwards a SlipDetector's output as a clock.Event.
type SlipKind int

const (
	SlipPositive SlipKind = iota
	SlipNegative
	SlipControlled
)

// SlipEvent reports a detected frame slip on a span.
type SlipEvent struct {
	Span             int
	Kind             SlipKind
	AccumulatedSlips int64
}

// SlipDetector maintains a per-span expected frame sequence number and
// compares each received frame's sequence number against it to detect
// duplicate or dropped frames; it takes no input from the Clock Service.
type SlipDetector struct {
	span       int
	expectSeq  uint64
	accumSlips int64
	started    bool
}

// NewSlipDetector creates a detector for the given span.
func NewSlipDetector(span int) *SlipDetector {
	return &SlipDetector{span: span}
}

// Observe records a received frame's sequence number and returns a
// SlipEvent if a slip was detected, or ok=false if the frame was in order.
func (d *SlipDetector) Observe(seq uint64) (SlipEvent, bool) {
	if !d.started {
		d.started = true
		d.expectSeq = seq + 1
		return SlipEvent{}, false
	}

	switch {
	case seq == d.expectSeq:
		d.expectSeq++
		return SlipEvent{}, false

	case seq > d.expectSeq:
		// One or more frames were dropped: negative slip (we're behind).
		missed := int64(seq - d.expectSeq)
		d.accumSlips += missed
		d.expectSeq = seq + 1
		return SlipEvent{Span: d.span, Kind: SlipNegative, AccumulatedSlips: d.accumSlips}, true

	default:
		// seq < expectSeq: a duplicate or re-sent frame: positive slip.
		d.accumSlips++
		return SlipEvent{Span: d.span, Kind: SlipPositive, AccumulatedSlips: d.accumSlips}, true
	}
}

// Accumulated returns the total slip count observed so far.
func (d *SlipDetector) Accumulated() int64 {
	return d.accumSlips
}
