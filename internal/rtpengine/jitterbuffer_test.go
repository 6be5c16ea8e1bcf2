package rtpengine

import (
	"testing"
	"time"
)

func mkPacket(seq uint16, arrival time.Time) Packet {
	return Packet{Sequence: seq, Timestamp: uint32(seq) * 160, Arrival: arrival, Payload: []byte{0xFF}}
}

func TestJitterBufferReorderWindow(t *testing.T) {
	b := NewJitterBuffer(20, 100, 20, 8000)
	if got := b.ReorderWindow(); got != 5 {
		t.Errorf("ReorderWindow() = %d, want 5", got)
	}
}

func TestJitterBufferOrdersOutOfSequencePackets(t *testing.T) {
	b := NewJitterBuffer(20, 100, 20, 8000)
	base := time.Now()
	b.Push(mkPacket(2, base.Add(2*time.Millisecond)))
	b.Push(mkPacket(0, base))
	b.Push(mkPacket(1, base.Add(1*time.Millisecond)))

	if got := b.Depth(); got != 3 {
		t.Fatalf("depth = %d, want 3", got)
	}

	later := base.Add(200 * time.Millisecond)
	p, ok := b.Pop(later)
	if !ok || p.Sequence != 0 {
		t.Fatalf("first pop = (%+v, %v), want seq 0", p, ok)
	}
	p, ok = b.Pop(later)
	if !ok || p.Sequence != 1 {
		t.Fatalf("second pop = (%+v, %v), want seq 1", p, ok)
	}
	p, ok = b.Pop(later)
	if !ok || p.Sequence != 2 {
		t.Fatalf("third pop = (%+v, %v), want seq 2", p, ok)
	}
}

func TestJitterBufferDropsLatePacketAfterPlayout(t *testing.T) {
	b := NewJitterBuffer(20, 100, 20, 8000)
	base := time.Now()
	b.Push(mkPacket(0, base))
	b.Pop(base.Add(200 * time.Millisecond))

	if ok := b.Push(mkPacket(0, base.Add(5*time.Millisecond))); ok {
		t.Errorf("Push() of already-played sequence = true, want false (late drop)")
	}
	dropped, _ := b.Stats()
	if dropped != 1 {
		t.Errorf("late-dropped count = %d, want 1", dropped)
	}
}

func TestJitterBufferDropsOldestOnOverflow(t *testing.T) {
	// maxMS=60, packetTimeMS=20 -> reorder window of 3.
	b := NewJitterBuffer(20, 60, 20, 8000)
	base := time.Now()
	b.Push(mkPacket(0, base))
	b.Push(mkPacket(1, base.Add(10*time.Millisecond)))
	b.Push(mkPacket(2, base.Add(20*time.Millisecond)))
	// A 4th packet overflows the window; the earliest arrival (seq 0) must
	// be the one dropped, never the newest arrival.
	b.Push(mkPacket(3, base.Add(30*time.Millisecond)))

	if got := b.Depth(); got != 3 {
		t.Fatalf("depth after overflow = %d, want 3", got)
	}
	_, overflowDropped := b.Stats()
	if overflowDropped != 1 {
		t.Errorf("overflow-dropped count = %d, want 1", overflowDropped)
	}

	later := base.Add(500 * time.Millisecond)
	p, ok := b.Pop(later)
	if !ok || p.Sequence != 1 {
		t.Fatalf("first surviving pop = (%+v, %v), want seq 1 (seq 0 evicted)", p, ok)
	}
}

func TestJitterBufferEmptyPopReturnsFalse(t *testing.T) {
	b := NewJitterBuffer(20, 100, 20, 8000)
	if _, ok := b.Pop(time.Now()); ok {
		t.Errorf("Pop() on empty buffer = true, want false")
	}
}

func TestJitterBufferWithholdsUntilPlayoutDeadline(t *testing.T) {
	b := NewJitterBuffer(20, 100, 20, 8000)
	base := time.Now()
	b.Push(mkPacket(0, base))
	// Immediately after arrival, before the playout delay has elapsed.
	if _, ok := b.Pop(base); ok {
		t.Errorf("Pop() before playout deadline = true, want false")
	}
}
