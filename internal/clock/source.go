// Package clock implements the Clock & Timing Service (spec.md §4.A): it
// tracks a set of ClockSources, elects one as active by a configurable
// algorithm, and runs a 1 Hz control loop that updates health, detects
// frequency drift, and manages holdover when the active source loses sync.
package clock

import (
	"context"
	"time"
)

// Kind identifies the underlying technology of a ClockSource.
type Kind int

const (
	KindInternal Kind = iota
	KindGPS
	KindNTP
	KindPTP
	KindTDMoERecovered
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindGPS:
		return "gps"
	case KindNTP:
		return "ntp"
	case KindPTP:
		return "ptp"
	case KindTDMoERecovered:
		return "tdmoe_recovered"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Health is what a Source reports each poll. Fields not meaningful for a
// given Kind (e.g. SatelliteCount for NTP) are left zero.
type Health struct {
	InSync          bool
	Stratum         uint8 // 0..15, lower = more authoritative
	FreqOffsetPPB   int64
	PhaseOffsetNS   int64
	TimeErrorNS     int64
	LastSync        time.Time
	SatelliteCount  int // GPS-specific
	SlipCount       int // TDMoE-specific
}

// Source is the interface every clock-source adapter implements. Wire
// protocols for real GPS/NTP/PTP hardware are Non-goals of this module
// (transcoder-equivalent "pluggable" boundary); adapters here simulate or
// derive health from injected readings so the selection/holdover/control
// loop logic is fully exercised.
type Source interface {
	ID() string
	Kind() Kind
	// Poll samples current health. Returns an error only for a hard
	// device/transport failure; a source that is simply unsynced reports
	// InSync: false with no error.
	Poll(ctx context.Context) (Health, error)
}

// InternalOscillator is the always-present Stratum 15 fallback. It never
// fails to poll and never loses sync, per spec.md §4.A failure semantics.
type InternalOscillator struct {
	id        string
	createdAt time.Time
}

// NewInternalOscillator constructs the fallback source.
func NewInternalOscillator(id string) *InternalOscillator {
	return &InternalOscillator{id: id, createdAt: time.Now()}
}

func (o *InternalOscillator) ID() string   { return o.id }
func (o *InternalOscillator) Kind() Kind   { return KindInternal }

func (o *InternalOscillator) Poll(_ context.Context) (Health, error) {
	return Health{
		InSync:  true,
		Stratum: 15,
		LastSync: o.createdAt,
	}, nil
}

// ReadingFunc lets a test or a host adapter supply health samples for an
// external-technology source (GPS, NTP, PTP, TDMoE-recovered) without this
// module needing the real wire protocol.
type ReadingFunc func(ctx context.Context) (Health, error)

// AdaptedSource wraps a ReadingFunc as a Source for a specific Kind.
type AdaptedSource struct {
	id   string
	kind Kind
	span int // meaningful only for KindTDMoERecovered
	read ReadingFunc
}

// NewGPSSource, NewNTPSource, NewPTPSource, NewTDMoERecoveredSource
// construct adapters for the respective clock technologies. The read
// function is the seam a deployment fills with real device/protocol code.
func NewGPSSource(id string, read ReadingFunc) *AdaptedSource {
	return &AdaptedSource{id: id, kind: KindGPS, read: read}
}

func NewNTPSource(id string, read ReadingFunc) *AdaptedSource {
	return &AdaptedSource{id: id, kind: KindNTP, read: read}
}

func NewPTPSource(id string, read ReadingFunc) *AdaptedSource {
	return &AdaptedSource{id: id, kind: KindPTP, read: read}
}

func NewTDMoERecoveredSource(id string, span int, read ReadingFunc) *AdaptedSource {
	return &AdaptedSource{id: id, kind: KindTDMoERecovered, span: span, read: read}
}

func (a *AdaptedSource) ID() string { return a.id }
func (a *AdaptedSource) Kind() Kind { return a.kind }
func (a *AdaptedSource) Span() int  { return a.span }

func (a *AdaptedSource) Poll(ctx context.Context) (Health, error) {
	if a.read == nil {
		return Health{}, nil
	}
	return a.read(ctx)
}
