// Package config defines the configuration snapshot consumed by the
// gateway core. Loading, validation, and file/flag/env parsing are host
// responsibilities per the spec's Non-goals; this package defines the
// snapshot shape and the copy-on-write swap primitive the core relies on so
// that a Call never observes a partially-updated routing table mid-decision,
// plus a flag/env convenience loader (loader.go) for demo binaries.
package config

import (
	"regexp"
	"sync/atomic"
	"time"
)

// SIP holds SIP transport and transaction-timer settings.
type SIP struct {
	Bind       string
	Transports []string // "udp", "tcp", "tls"
	T1         time.Duration
	T2         time.Duration
}

// RTP holds RTP port allocation and jitter buffer bounds.
type RTP struct {
	PortRangeStart int
	PortRangeEnd   int
	JitterMinMS    int
	JitterMaxMS    int
}

// Codecs holds the enabled codec set and local preference order.
type Codecs struct {
	Enabled        []string
	PreferredOrder []string
}

// RoutingRule mirrors spec.md §3's RoutingRule entity.
type RoutingRule struct {
	ID          string
	Pattern     string
	compiled    *regexp.Regexp
	RouteType   RouteType
	Target      string
	Priority    uint8
	Translation *NumberTranslation
}

// RouteType enumerates the routing rule's target class.
type RouteType int

const (
	RouteDirect RouteType = iota
	RouteGateway
	RouteTrunk
	RouteEmergency
)

// NumberTranslation describes an optional called-number rewrite applied
// when a rule matches.
type NumberTranslation struct {
	Match       string
	Replacement string
}

// Compile lazily compiles the rule's pattern; routing lookups call this
// once via Snapshot.CompileRouting at snapshot construction time.
func (r *RoutingRule) Compile() error {
	if r.compiled != nil {
		return nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return err
	}
	r.compiled = re
	return nil
}

// Matches reports whether the called number matches this rule's pattern.
// Compile must have succeeded first.
func (r *RoutingRule) Matches(calledNumber string) bool {
	if r.compiled == nil {
		return false
	}
	return r.compiled.MatchString(calledNumber)
}

// Routing holds the ordered rule table.
type Routing struct {
	Rules []RoutingRule
}

// Timing holds Component A's configuration (spec.md §6).
type Timing struct {
	EnableInternal        bool
	EnableGPS             bool
	EnableNTP             bool
	EnablePTP             bool
	SelectionAlgorithm    string // "highest_stratum", "lowest_error", "most_stable", "manual"
	MaxFrequencyOffsetPPB int64
	MaxPhaseOffsetNS      int64
	HoldoverSeconds       int
}

// Limits holds admission and duration bounds.
type Limits struct {
	MaxCalls         int
	MaxCallDurationS int
}

// Snapshot is the single immutable configuration object the core consumes.
type Snapshot struct {
	SIP     SIP
	RTP     RTP
	Codecs  Codecs
	Routing Routing
	Timing  Timing
	Limits  Limits
}

// Default returns a Snapshot with the defaults named throughout spec.md.
func Default() *Snapshot {
	return &Snapshot{
		SIP: SIP{
			Bind:       "0.0.0.0:5060",
			Transports: []string{"udp"},
			T1:         500 * time.Millisecond,
			T2:         4 * time.Second,
		},
		RTP: RTP{
			PortRangeStart: 16384,
			PortRangeEnd:   32768,
			JitterMinMS:    20,
			JitterMaxMS:    120,
		},
		Codecs: Codecs{
			Enabled:        []string{"PCMU", "PCMA", "G722", "G729", "Opus"},
			PreferredOrder: []string{"PCMU", "PCMA", "G722"},
		},
		Timing: Timing{
			EnableInternal:        true,
			SelectionAlgorithm:    "highest_stratum",
			MaxFrequencyOffsetPPB: 50,
			MaxPhaseOffsetNS:      1_000_000,
			HoldoverSeconds:       300,
		},
		Limits: Limits{
			MaxCalls:         1000,
			MaxCallDurationS: 4 * 3600,
		},
	}
}

// CompileRouting compiles every rule's pattern and returns an error
// describing the first bad one, if any. Call before installing a snapshot.
func (s *Snapshot) CompileRouting() error {
	for i := range s.Routing.Rules {
		if err := s.Routing.Rules[i].Compile(); err != nil {
			return err
		}
	}
	return nil
}

// Store is an atomically-swapped holder for the active Snapshot, giving
// readers copy-on-write semantics: a reader that calls Load observes either
// the whole old snapshot or the whole new one, never a mix, per spec.md §5.
type Store struct {
	ptr atomic.Pointer[Snapshot]
}

// NewStore creates a Store seeded with the given snapshot.
func NewStore(initial *Snapshot) *Store {
	s := &Store{}
	s.ptr.Store(initial)
	return s
}

// Load returns the currently active snapshot.
func (s *Store) Load() *Snapshot {
	return s.ptr.Load()
}

// Swap atomically installs a new snapshot, returning the previous one.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.ptr.Swap(next)
}
