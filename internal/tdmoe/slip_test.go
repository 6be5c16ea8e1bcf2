package tdmoe

import "testing"

func TestSlipDetectorInOrderNoSlip(t *testing.T) {
	d := NewSlipDetector(1)
	d.Observe(0)
	if _, slipped := d.Observe(1); slipped {
		t.Fatalf("expected no slip for in-order frame")
	}
}

func TestSlipDetectorDetectsDroppedFrame(t *testing.T) {
	d := NewSlipDetector(1)
	d.Observe(0)
	ev, slipped := d.Observe(2) // frame 1 dropped
	if !slipped {
		t.Fatalf("expected slip on gap")
	}
	if ev.Kind != SlipNegative {
		t.Errorf("kind = %v, want SlipNegative", ev.Kind)
	}
	if ev.AccumulatedSlips != 1 {
		t.Errorf("accumulated = %d, want 1", ev.AccumulatedSlips)
	}
}

func TestSlipDetectorDetectsDuplicateFrame(t *testing.T) {
	d := NewSlipDetector(1)
	d.Observe(0)
	d.Observe(1)
	ev, slipped := d.Observe(1) // duplicate
	if !slipped {
		t.Fatalf("expected slip on duplicate")
	}
	if ev.Kind != SlipPositive {
		t.Errorf("kind = %v, want SlipPositive", ev.Kind)
	}
}

func TestSlipDetectorAccumulates(t *testing.T) {
	d := NewSlipDetector(1)
	d.Observe(0)
	d.Observe(2)
	d.Observe(5)
	if got := d.Accumulated(); got != 3 {
		t.Errorf("accumulated = %d, want 3", got)
	}
}
