// Package gwerrors defines the behavioral error taxonomy shared across the
// gateway core: clock, media, SIP, and B2BUA subsystems all report failures
// in terms of these kinds so that callers can map them to SIP responses or
// process-level decisions without depending on subsystem-specific types.
package gwerrors

import "errors"

// Sentinel errors. Use errors.Is against these, or errors.As against
// *StateTransitionError for state-machine violations.
var (
	// ErrNotFound means an id did not resolve to a known entity.
	ErrNotFound = errors.New("gwerrors: not found")
	// ErrAlreadyExists means an add operation collided with an existing id.
	ErrAlreadyExists = errors.New("gwerrors: already exists")
	// ErrNegotiation means SDP/codec negotiation failed; callers map this
	// to a SIP 488 Not Acceptable Here on the failing leg.
	ErrNegotiation = errors.New("gwerrors: negotiation failed")
	// ErrUnreachable means no response arrived within the retry budget;
	// callers map this to SIP 408/503.
	ErrUnreachable = errors.New("gwerrors: unreachable")
	// ErrProtocolViolation means a malformed SIP/RTP message or packet was
	// dropped. Not fatal; the caller increments a counter and continues.
	ErrProtocolViolation = errors.New("gwerrors: protocol violation")
	// ErrResourceExhausted means a bound (max_calls, port pool) was hit.
	ErrResourceExhausted = errors.New("gwerrors: resource exhausted")
	// ErrClockDegraded means the active clock source exceeded a threshold.
	ErrClockDegraded = errors.New("gwerrors: clock degraded")
	// ErrNoClock means no clock source is active and none is the
	// internal-oscillator fallback; soft failure, never expected in
	// steady state since the internal oscillator always re-enters.
	ErrNoClock = errors.New("gwerrors: no active clock source")
	// ErrCodecUnavailable means a codec is registered but its transcoder
	// implementation is a pluggable stub not wired in this build.
	ErrCodecUnavailable = errors.New("gwerrors: codec unavailable")
	// ErrInvalidArgument means a caller-supplied request was malformed,
	// independent of any entity lookup (the management API's input
	// validation boundary).
	ErrInvalidArgument = errors.New("gwerrors: invalid argument")
)

// Fatal wraps an error that should unwind the process (ConfigInvalid or a
// bug-equivalent panic translated to an error at a recover boundary).
type Fatal struct {
	Err error
}

func (f *Fatal) Error() string { return "gwerrors: fatal: " + f.Err.Error() }
func (f *Fatal) Unwrap() error { return f.Err }

// StateTransitionError reports an illegal transition attempted on a Call,
// Leg, or ClockSource state machine.
type StateTransitionError struct {
	Entity  string // "call", "leg", "clock_source"
	ID      string
	From    string
	To      string
	Message string
}

func (e *StateTransitionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "illegal transition"
	}
	return "gwerrors: " + e.Entity + " " + e.ID + ": " + msg + " (" + e.From + " -> " + e.To + ")"
}
