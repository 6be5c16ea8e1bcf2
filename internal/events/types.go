// Package events carries call lifecycle notifications and CDRs out of the
// call engine, transport-agnostic so a Publisher can be swapped for NATS, a
// message queue, or plain structured logging without touching b2bua.
package events

import "time"

// EventType identifies the kind of call lifecycle event.
type EventType string

const (
	EventCallReceived EventType = "call.received"
	EventCallDialing  EventType = "call.dialing"
	EventCallRinging  EventType = "call.ringing"
	EventCallAnswered EventType = "call.answered"
	EventCallBridged  EventType = "call.bridged"
	EventCallEnded    EventType = "call.ended"
)

// Event is one call lifecycle notification. CDR is populated only for
// EventCallEnded; other event types carry just the identifying fields.
type Event struct {
	Type      EventType
	CallID    string
	Timestamp time.Time
	CDR       *CDR
}

// DispositionCode is the CDR's coarse outcome classification.
type DispositionCode string

const (
	DispositionAnswered DispositionCode = "ANSWERED"
	DispositionNoAnswer DispositionCode = "NO_ANSWER"
	DispositionBusy     DispositionCode = "BUSY"
	DispositionFailed   DispositionCode = "FAILED"
)
