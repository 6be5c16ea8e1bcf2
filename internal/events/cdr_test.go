package events

import (
	"testing"
	"time"

	"github.com/redfire/gateway/internal/mediarelay"
)

func TestCDRFromSnapshotAnsweredCall(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	answered := created.Add(2 * time.Second)
	ended := answered.Add(30 * time.Second)

	cdr := CDRFromSnapshot("call1", "+15551234567", "+442012345678", 5, 0, created, &answered, &ended, mediarelay.Stats{})

	if cdr.DispositionCode != DispositionAnswered {
		t.Errorf("DispositionCode = %s, want ANSWERED", cdr.DispositionCode)
	}
	if cdr.SetupDurationMs != 2000 {
		t.Errorf("SetupDurationMs = %d, want 2000", cdr.SetupDurationMs)
	}
	if cdr.TalkDurationMs != 30000 {
		t.Errorf("TalkDurationMs = %d, want 30000", cdr.TalkDurationMs)
	}
	if cdr.TotalDurationMs != 32000 {
		t.Errorf("TotalDurationMs = %d, want 32000", cdr.TotalDurationMs)
	}
	if cdr.BillableDurationMs != cdr.TalkDurationMs {
		t.Errorf("BillableDurationMs = %d, want %d", cdr.BillableDurationMs, cdr.TalkDurationMs)
	}
}

func TestCDRFromSnapshotUnansweredCallHasNoDuration(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ended := created.Add(5 * time.Second)

	cdr := CDRFromSnapshot("call2", "+1", "+2", 6, 0, created, nil, &ended, mediarelay.Stats{})

	if cdr.DispositionCode != DispositionNoAnswer {
		t.Errorf("DispositionCode = %s, want NO_ANSWER", cdr.DispositionCode)
	}
	if cdr.TalkDurationMs != 0 || cdr.BillableDurationMs != 0 {
		t.Errorf("unanswered call should have zero talk/billable duration, got talk=%d billable=%d", cdr.TalkDurationMs, cdr.BillableDurationMs)
	}
	if cdr.TotalDurationMs != 5000 {
		t.Errorf("TotalDurationMs = %d, want 5000", cdr.TotalDurationMs)
	}
}

func TestCDRFromSnapshotBusyDisposition(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ended := created.Add(time.Second)

	cdr := CDRFromSnapshot("call3", "+1", "+2", 6, 4, created, nil, &ended, mediarelay.Stats{})

	if cdr.DispositionCode != DispositionBusy {
		t.Errorf("DispositionCode = %s, want BUSY", cdr.DispositionCode)
	}
}
