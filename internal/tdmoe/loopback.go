package tdmoe

import (
	"context"
	"sync"
	"time"

	"github.com/redfire/gateway/internal/gwerrors"
)

// LoopbackFrameIO is an in-process FrameIO implementation backed by
// per-span channels, standing in for the raw L2 socket a host provides.
// Useful for tests and for running the media bridge end-to-end without
// real TDM hardware.
type LoopbackFrameIO struct {
	mu    sync.Mutex
	spans map[int]chan Frame
	seq   map[int]uint64
}

// NewLoopbackFrameIO creates a loopback FrameIO with the given spans
// pre-registered.
func NewLoopbackFrameIO(spans ...int) *LoopbackFrameIO {
	l := &LoopbackFrameIO{
		spans: make(map[int]chan Frame),
		seq:   make(map[int]uint64),
	}
	for _, s := range spans {
		l.spans[s] = make(chan Frame, 64)
	}
	return l
}

func (l *LoopbackFrameIO) Read(ctx context.Context, span int) (Frame, error) {
	l.mu.Lock()
	ch, ok := l.spans[span]
	l.mu.Unlock()
	if !ok {
		return Frame{}, gwerrors.ErrNotFound
	}
	select {
	case f := <-ch:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (l *LoopbackFrameIO) Write(ctx context.Context, span int, frame Frame) error {
	l.mu.Lock()
	ch, ok := l.spans[span]
	if ok {
		l.seq[span]++
		frame.Seq = l.seq[span]
	}
	l.mu.Unlock()
	if !ok {
		return gwerrors.ErrNotFound
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}
	select {
	case ch <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
