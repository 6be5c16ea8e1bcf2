package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Publisher delivers lifecycle Events to whatever sink a deployment
// wants (logs, a message broker, a metrics exporter). PublishAsync never
// blocks the call engine's worker; Flush waits for any buffered work to
// drain before shutdown.
type Publisher interface {
	Publish(e Event) error
	PublishAsync(e Event)
	Flush(ctx context.Context) error
	Close() error
}

// NoopPublisher discards every event. Useful for tests and for deployments
// that don't need CDR export.
type NoopPublisher struct{}

// NewNoopPublisher returns a Publisher that does nothing.
func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) Publish(Event) error        { return nil }
func (NoopPublisher) PublishAsync(Event)         {}
func (NoopPublisher) Flush(context.Context) error { return nil }
func (NoopPublisher) Close() error               { return nil }

// LoggingPublisher writes every event as a structured log line. Useful as
// a fallback sink, or stacked behind a MultiPublisher alongside a real one.
type LoggingPublisher struct {
	log *slog.Logger
}

// NewLoggingPublisher builds a LoggingPublisher; a nil logger uses slog's
// default.
func NewLoggingPublisher(log *slog.Logger) *LoggingPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingPublisher{log: log}
}

func (p *LoggingPublisher) Publish(e Event) error {
	attrs := []any{"type", string(e.Type), "call_id", e.CallID}
	if e.CDR != nil {
		attrs = append(attrs,
			"caller", e.CDR.Caller,
			"callee", e.CDR.Callee,
			"disposition", string(e.CDR.DispositionCode),
			"talk_duration_ms", e.CDR.TalkDurationMs,
			"total_duration_ms", e.CDR.TotalDurationMs,
		)
	}
	p.log.Info("call event", attrs...)
	return nil
}

func (p *LoggingPublisher) PublishAsync(e Event) { _ = p.Publish(e) }
func (p *LoggingPublisher) Flush(context.Context) error { return nil }
func (p *LoggingPublisher) Close() error                { return nil }

// ChannelPublisher buffers events on a bounded channel drained by a
// background goroutine that forwards to an underlying Publisher. When the
// buffer is full, the oldest queued event is dropped to make room rather
// than blocking the caller (the call engine's worker must never stall on
// CDR export), and DropCount records how many were lost this way.
type ChannelPublisher struct {
	next  Publisher
	ch    chan Event
	done  chan struct{}
	drops atomic.Uint64

	closeOnce sync.Once
}

// NewChannelPublisher starts a ChannelPublisher with the given buffer
// depth, forwarding every accepted event to next.
func NewChannelPublisher(next Publisher, buffer int) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &ChannelPublisher{
		next: next,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *ChannelPublisher) run() {
	defer close(p.done)
	for e := range p.ch {
		_ = p.next.Publish(e)
	}
}

// Publish enqueues e, dropping the oldest buffered event on overflow.
func (p *ChannelPublisher) Publish(e Event) error {
	for {
		select {
		case p.ch <- e:
			return nil
		default:
		}
		select {
		case <-p.ch:
			p.drops.Add(1)
		default:
		}
	}
}

func (p *ChannelPublisher) PublishAsync(e Event) { _ = p.Publish(e) }

// DropCount returns how many events were discarded for buffer overflow.
func (p *ChannelPublisher) DropCount() uint64 { return p.drops.Load() }

func (p *ChannelPublisher) Flush(ctx context.Context) error {
	for {
		if len(p.ch) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (p *ChannelPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.ch) })
	<-p.done
	return nil
}

// MultiPublisher fans every event out to all of its underlying Publishers,
// so a deployment can e.g. log and export CDRs simultaneously.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher builds a MultiPublisher fanning out to all of ps.
func NewMultiPublisher(ps ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: ps}
}

func (p *MultiPublisher) Publish(e Event) error {
	var firstErr error
	for _, sub := range p.publishers {
		if err := sub.Publish(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *MultiPublisher) PublishAsync(e Event) {
	for _, sub := range p.publishers {
		sub.PublishAsync(e)
	}
}

func (p *MultiPublisher) Flush(ctx context.Context) error {
	for _, sub := range p.publishers {
		if err := sub.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *MultiPublisher) Close() error {
	var firstErr error
	for _, sub := range p.publishers {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
