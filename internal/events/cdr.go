package events

import (
	"time"

	"github.com/redfire/gateway/internal/mediarelay"
)

// CDR is the billing/call-detail record assembled from a terminated
// Call's snapshot, mirroring the CDR-ready fields of a call.ended event
// (setup/ring/talk durations, disposition) rather than exposing b2bua's
// internal CallState numbering directly.
type CDR struct {
	CallID          string
	Caller          string
	Callee          string
	State           int
	DisconnectCause int
	CreatedAt       time.Time
	AnsweredAt      *time.Time
	EndedAt         *time.Time

	SetupDurationMs    int64
	TalkDurationMs     int64
	TotalDurationMs    int64
	BillableDurationMs int64
	DispositionCode    DispositionCode

	PacketsAtoB uint64
	PacketsBtoA uint64
	BytesAtoB   uint64
	BytesBtoA   uint64
}

// CDRFromSnapshot builds a CDR from a Call's terminal snapshot fields.
// state and disconnectCause are the caller's CallState/DisconnectCause
// enums, carried as plain ints so this package need not import b2bua.
// relayStats is the zero value when the call never reached a media relay
// (e.g. rejected before both legs answered).
func CDRFromSnapshot(callID, caller, callee string, state, disconnectCause int, createdAt time.Time, answeredAt, endedAt *time.Time, relayStats mediarelay.Stats) *CDR {
	c := &CDR{
		CallID:          callID,
		Caller:          caller,
		Callee:          callee,
		State:           state,
		DisconnectCause: disconnectCause,
		CreatedAt:       createdAt,
		AnsweredAt:      answeredAt,
		EndedAt:         endedAt,
		DispositionCode: dispositionFor(disconnectCause, answeredAt),
		PacketsAtoB:     relayStats.PacketsAtoB,
		PacketsBtoA:     relayStats.PacketsBtoA,
		BytesAtoB:       relayStats.BytesAtoB,
		BytesBtoA:       relayStats.BytesBtoA,
	}
	if endedAt != nil {
		c.TotalDurationMs = endedAt.Sub(createdAt).Milliseconds()
		if answeredAt != nil {
			c.TalkDurationMs = endedAt.Sub(*answeredAt).Milliseconds()
			c.BillableDurationMs = c.TalkDurationMs
			c.SetupDurationMs = answeredAt.Sub(createdAt).Milliseconds()
		}
	}
	return c
}

func dispositionFor(disconnectCause int, answeredAt *time.Time) DispositionCode {
	if answeredAt != nil {
		return DispositionAnswered
	}
	// DisconnectCause 4 == CauseCalleeBusy in b2bua's enum ordering.
	if disconnectCause == 4 {
		return DispositionBusy
	}
	if disconnectCause == 0 {
		return DispositionNoAnswer
	}
	return DispositionFailed
}
