package clock

import "time"

// EventType enumerates the clock/timing events of spec.md §4.A.
type EventType int

const (
	EventSourceSelected EventType = iota
	EventSynchronized
	EventLossOfSync
	EventFrequencyDrift
	EventGPSSignalLost
	EventGPSSignalRestored
	EventTDMClockSlip
)

// SlipKind mirrors spec.md §4.B's TdmClockSlip kinds.
type SlipKind int

const (
	SlipPositive SlipKind = iota
	SlipNegative
	SlipControlled
)

// Event is emitted on the subscription channel returned by
// Service.SubscribeEvents. Exactly one of the optional fields is populated
// depending on Type.
type Event struct {
	Type      EventType
	Time      time.Time
	SourceID  string

	// EventSynchronized
	OffsetNS   int64
	AccuracyNS int64

	// EventFrequencyDrift
	FreqPPB   int64
	Threshold int64

	// EventTDMClockSlip
	Span             int
	SlipKind         SlipKind
	AccumulatedSlips int64
}
