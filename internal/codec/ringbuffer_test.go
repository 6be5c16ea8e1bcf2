package codec

import "testing"

func TestRingTakeFrameInsufficientSamples(t *testing.T) {
	r := newRing()
	r.Push([]int16{1, 2, 3})
	if _, ok := r.TakeFrame(5); ok {
		t.Errorf("TakeFrame(5) ok = true, want false with only 3 buffered")
	}
}

func TestRingTakeFrameExactMatch(t *testing.T) {
	r := newRing()
	r.Push([]int16{1, 2, 3, 4})
	frame, ok := r.TakeFrame(4)
	if !ok {
		t.Fatalf("TakeFrame(4) ok = false, want true")
	}
	want := []int16{1, 2, 3, 4}
	for i := range want {
		if frame[i] != want[i] {
			t.Errorf("frame[%d] = %d, want %d", i, frame[i], want[i])
		}
	}
	if r.Len() != 0 {
		t.Errorf("Len() after exact take = %d, want 0", r.Len())
	}
}

func TestRingTakeFrameLeavesRemainder(t *testing.T) {
	r := newRing()
	r.Push([]int16{1, 2, 3, 4, 5})
	if _, ok := r.TakeFrame(3); !ok {
		t.Fatalf("TakeFrame(3) ok = false, want true")
	}
	if r.Len() != 2 {
		t.Errorf("Len() after partial take = %d, want 2", r.Len())
	}
}

func TestRingAccumulatesAcrossPushes(t *testing.T) {
	r := newRing()
	r.Push([]int16{1, 2})
	r.Push([]int16{3, 4})
	if r.Len() != 4 {
		t.Errorf("Len() = %d, want 4", r.Len())
	}
}
