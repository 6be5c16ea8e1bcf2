package codec

// ring is a simple growable sample queue used to realign packet
// boundaries when the two legs of a bridge negotiate different
// packetization times (e.g. 20ms on one leg, 30ms on the other).
type ring struct {
	buf []int16
}

func newRing() *ring {
	return &ring{}
}

// Push appends samples to the tail of the queue.
func (r *ring) Push(samples []int16) {
	r.buf = append(r.buf, samples...)
}

// TakeFrame removes and returns exactly n samples from the head of the
// queue if available, or ok=false if fewer than n samples are buffered.
func (r *ring) TakeFrame(n int) (frame []int16, ok bool) {
	if len(r.buf) < n {
		return nil, false
	}
	frame = make([]int16, n)
	copy(frame, r.buf[:n])
	r.buf = r.buf[n:]
	return frame, true
}

// Len reports the number of buffered samples.
func (r *ring) Len() int {
	return len(r.buf)
}
