package clock

import (
	"math"

	"github.com/eclesh/welford"
)

// Algorithm identifies a clock-selection strategy (spec.md §4.A).
type Algorithm int

const (
	AlgorithmHighestStratum Algorithm = iota
	AlgorithmLowestError
	AlgorithmMostStable
	AlgorithmManual
)

func ParseAlgorithm(s string) Algorithm {
	switch s {
	case "lowest_error":
		return AlgorithmLowestError
	case "most_stable":
		return AlgorithmMostStable
	case "manual":
		return AlgorithmManual
	default:
		return AlgorithmHighestStratum
	}
}

// Snapshot is an immutable view of one source's state at selection time,
// the unit the selection function operates over. Expressing selection as a
// pure function of []Snapshot (recomputed every tick) rather than
// incremental mutation removes a whole class of inconsistency bugs, per
// spec.md §9.
type Snapshot struct {
	ID             string
	Kind           Kind
	Stratum        uint8
	InSync         bool
	IsHoldover     bool
	TimeErrorNS    int64
	AllanVariance  float64
	UptimeSeconds  int64
	InsertionOrder int
}

// Select runs the given algorithm over candidates and returns the winning
// source's ID, or "" if candidates is empty. manualID is honored only when
// algorithm is AlgorithmManual (Service's manual select switches the
// algorithm to manual first); pass "" when no manual override applies.
func Select(algorithm Algorithm, candidates []Snapshot, manualID string) string {
	eligible := make([]Snapshot, 0, len(candidates))
	for _, c := range candidates {
		if c.InSync || c.IsHoldover {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		eligible = candidates // fall through: let the internal oscillator win
	}
	if len(eligible) == 0 {
		return ""
	}

	if algorithm == AlgorithmManual && manualID != "" {
		for _, c := range eligible {
			if c.ID == manualID {
				return c.ID
			}
		}
	}

	best := eligible[0]
	for _, c := range eligible[1:] {
		if better(algorithm, c, best) {
			best = c
		}
	}
	return best.ID
}

// better reports whether candidate beats current under algorithm, with
// ties broken by (stratum, -uptime, insertion order) per spec.md §4.A.
func better(algorithm Algorithm, candidate, current Snapshot) bool {
	switch algorithm {
	case AlgorithmLowestError:
		if absI64(candidate.TimeErrorNS) != absI64(current.TimeErrorNS) {
			return absI64(candidate.TimeErrorNS) < absI64(current.TimeErrorNS)
		}
	case AlgorithmMostStable:
		if candidate.AllanVariance != current.AllanVariance {
			return candidate.AllanVariance < current.AllanVariance
		}
	case AlgorithmHighestStratum, AlgorithmManual:
		// fall through to tie-break below when strata are equal
	}

	if candidate.Stratum != current.Stratum {
		return candidate.Stratum < current.Stratum
	}
	if candidate.UptimeSeconds != current.UptimeSeconds {
		return candidate.UptimeSeconds > current.UptimeSeconds
	}
	return candidate.InsertionOrder < current.InsertionOrder
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// StabilityWindow accumulates frequency-offset samples with Welford's
// online algorithm to approximate an Allan-variance-style stability metric
// over a sliding window, used by AlgorithmMostStable.
type StabilityWindow struct {
	acc        *welford.Stats
	windowSize int
	samples    []float64
}

// NewStabilityWindow creates a window retaining up to windowSize samples.
func NewStabilityWindow(windowSize int) *StabilityWindow {
	if windowSize <= 0 {
		windowSize = 60
	}
	return &StabilityWindow{acc: welford.New(), windowSize: windowSize}
}

// Add records a new frequency-offset (PPB) sample.
func (w *StabilityWindow) Add(freqOffsetPPB int64) {
	w.samples = append(w.samples, float64(freqOffsetPPB))
	if len(w.samples) > w.windowSize {
		w.samples = w.samples[len(w.samples)-w.windowSize:]
	}
	w.acc = welford.New()
	for _, s := range w.samples {
		w.acc.Add(s)
	}
}

// Variance returns the current sample variance, our stand-in for Allan
// variance over the window (a true two-sample Allan variance needs
// phase-difference samples at a fixed tau; this module tracks frequency
// stability as the variance of successive offset samples instead, which is
// the simpler statistic the teacher's math helpers are built around).
func (w *StabilityWindow) Variance() float64 {
	if w.acc == nil || len(w.samples) < 2 {
		return math.Inf(1)
	}
	return w.acc.Variance()
}
