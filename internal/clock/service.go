package clock

import (
	"context"
	"sync"
	"time"

	"github.com/redfire/gateway/internal/gwerrors"
	"github.com/redfire/gateway/internal/logging"
)

var log = logging.Component("clock")

const (
	defaultHoldoverSeconds = 300
	defaultTickInterval    = time.Second
)

type sourceState struct {
	source         Source
	order          int
	createdAt      time.Time
	lastHealth     Health
	isActive       bool
	isHoldover     bool
	holdoverSince  time.Time
	degraded       bool
	stability      *StabilityWindow
}

// Service implements the Clock & Timing Service (spec.md §4.A): it owns the
// set of ClockSources, runs the 1 Hz selection control loop, and is the
// single writer of the system stratum (spec.md §5).
type Service struct {
	mu sync.RWMutex

	sources map[string]*sourceState
	order   int

	algorithm       Algorithm
	manualSelection string

	maxFreqOffsetPPB int64
	holdover         time.Duration

	activeID string
	stratum  uint8

	subs   []chan Event
	subsMu sync.Mutex

	tick     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Service at construction.
type Option func(*Service)

// WithAlgorithm sets the selection algorithm (default HighestStratum).
func WithAlgorithm(a Algorithm) Option {
	return func(s *Service) { s.algorithm = a }
}

// WithMaxFrequencyOffsetPPB sets the drift threshold (default 50 PPB).
func WithMaxFrequencyOffsetPPB(ppb int64) Option {
	return func(s *Service) { s.maxFreqOffsetPPB = ppb }
}

// WithHoldover sets the holdover window (default 300s per spec.md §4.A).
func WithHoldover(d time.Duration) Option {
	return func(s *Service) { s.holdover = d }
}

// WithTickInterval overrides the 1 Hz control loop period; intended for
// tests that want to compress holdover expiry into milliseconds.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) { s.tick = d }
}

// NewService constructs a Service and registers the always-present
// internal oscillator (Stratum 15 fallback, spec.md §4.A).
func NewService(opts ...Option) *Service {
	s := &Service{
		sources:          make(map[string]*sourceState),
		algorithm:        AlgorithmHighestStratum,
		maxFreqOffsetPPB: 50,
		holdover:         defaultHoldoverSeconds * time.Second,
		tick:             defaultTickInterval,
		stopCh:           make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	_ = s.AddSource(NewInternalOscillator("internal-0"))
	return s
}

// AddSource registers a new clock source. Returns gwerrors.ErrAlreadyExists
// if the id is already present.
func (s *Service) AddSource(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sources[src.ID()]; exists {
		return gwerrors.ErrAlreadyExists
	}
	s.order++
	s.sources[src.ID()] = &sourceState{
		source:    src,
		order:     s.order,
		createdAt: time.Now(),
		stability: NewStabilityWindow(60),
	}
	return nil
}

// RemoveSource unregisters a source. Returns gwerrors.ErrNotFound if unknown.
func (s *Service) RemoveSource(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sources[id]; !exists {
		return gwerrors.ErrNotFound
	}
	delete(s.sources, id)
	if s.activeID == id {
		s.activeID = ""
	}
	return nil
}

// Select forces manual selection of the given source id (spec.md §4.A:
// "select(source_id) forces manual"). Returns gwerrors.ErrNotFound if
// unknown.
func (s *Service) Select(id string) error {
	s.mu.Lock()
	if _, exists := s.sources[id]; !exists {
		s.mu.Unlock()
		return gwerrors.ErrNotFound
	}
	s.algorithm = AlgorithmManual
	s.manualSelection = id
	s.mu.Unlock()

	s.runSelection()
	return nil
}

// SourceInfo is a read-only view of a ClockSource for callers outside the
// clock package (the management API, CLI-equivalents, tests).
type SourceInfo struct {
	ID             string
	Kind           Kind
	Stratum        uint8
	IsActive       bool
	IsHoldover     bool
	FreqOffsetPPB  int64
	PhaseOffsetNS  int64
	TimeErrorNS    int64
	AllanVariance  float64
	LastSync       time.Time
}

// GetSources returns a snapshot of all registered sources.
func (s *Service) GetSources() []SourceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SourceInfo, 0, len(s.sources))
	for id, st := range s.sources {
		out = append(out, SourceInfo{
			ID:            id,
			Kind:          st.source.Kind(),
			Stratum:       st.lastHealth.Stratum,
			IsActive:      st.isActive,
			IsHoldover:    st.isHoldover,
			FreqOffsetPPB: st.lastHealth.FreqOffsetPPB,
			PhaseOffsetNS: st.lastHealth.PhaseOffsetNS,
			TimeErrorNS:   st.lastHealth.TimeErrorNS,
			AllanVariance: st.stability.Variance(),
			LastSync:      st.lastHealth.LastSync,
		})
	}
	return out
}

// GetSelected returns the currently active source's id and the system
// stratum (spec.md §3 invariant: system_stratum equals the active source's
// stratum). ok is false if no source is active (gwerrors.ErrNoClock case,
// which in steady state cannot happen since the internal oscillator always
// re-enters).
func (s *Service) GetSelected() (id string, stratum uint8, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return "", 0, false
	}
	return s.activeID, s.stratum, true
}

// SubscribeEvents returns a channel of Service events. The channel is
// buffered; slow subscribers may miss events rather than blocking the
// control loop.
func (s *Service) SubscribeEvents() <-chan Event {
	ch := make(chan Event, 64)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	return ch
}

func (s *Service) emit(e Event) {
	e.Time = time.Now()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			log.Warn("dropped clock event: subscriber buffer full", "type", e.Type)
		}
	}
}

// Run starts the 1 Hz control loop and blocks until ctx is cancelled or
// Stop is called.
func (s *Service) Run(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}

// Stop halts the control loop goroutine started by Run.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// tickOnce polls every source, updates health/holdover/degraded state,
// emits drift/loss events, and re-runs selection.
func (s *Service) tickOnce(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.pollSource(ctx, id)
	}
	s.runSelection()
}

func (s *Service) pollSource(ctx context.Context, id string) {
	s.mu.Lock()
	st, exists := s.sources[id]
	s.mu.Unlock()
	if !exists {
		return
	}

	health, err := st.source.Poll(ctx)
	if err != nil {
		log.Warn("source poll failed", "source_id", id, "error", err)
		return
	}

	s.mu.Lock()
	wasActive := st.isActive
	wasHoldover := st.isHoldover
	st.lastHealth = health
	st.stability.Add(health.FreqOffsetPPB)

	if absI64(health.FreqOffsetPPB) > s.maxFreqOffsetPPB {
		st.degraded = true
	} else {
		st.degraded = false
	}

	if health.InSync {
		if st.isHoldover {
			st.isHoldover = false
		}
	} else if wasActive && !st.isHoldover {
		st.isHoldover = true
		st.holdoverSince = time.Now()
	}
	holdoverExpired := st.isHoldover && time.Since(st.holdoverSince) > s.holdover
	s.mu.Unlock()

	if !health.InSync && wasActive {
		s.emit(Event{Type: EventLossOfSync, SourceID: id})
		if st.source.Kind() == KindGPS {
			s.emit(Event{Type: EventGPSSignalLost, SourceID: id})
		}
	}
	if health.InSync && st.source.Kind() == KindGPS && wasActive && wasHoldover {
		s.emit(Event{Type: EventGPSSignalRestored, SourceID: id})
	}
	if st.degraded {
		s.emit(Event{Type: EventFrequencyDrift, SourceID: id, FreqPPB: health.FreqOffsetPPB, Threshold: s.maxFreqOffsetPPB})
	}
	if health.InSync {
		s.emit(Event{Type: EventSynchronized, SourceID: id, OffsetNS: health.PhaseOffsetNS, AccuracyNS: health.TimeErrorNS})
	}
	if holdoverExpired {
		s.mu.Lock()
		st.isHoldover = false
		s.mu.Unlock()
	}
}

// runSelection recomputes the winner as a pure function of current source
// snapshots (spec.md §9 design note) and, on change, updates activeID and
// stratum and emits EventSourceSelected.
func (s *Service) runSelection() {
	s.mu.Lock()
	snapshots := make([]Snapshot, 0, len(s.sources))
	for id, st := range s.sources {
		eligible := st.lastHealth.InSync || st.isHoldover || st.source.Kind() == KindInternal
		if !eligible {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			ID:             id,
			Kind:           st.source.Kind(),
			Stratum:        effectiveStratum(st),
			InSync:         st.lastHealth.InSync,
			IsHoldover:     st.isHoldover,
			TimeErrorNS:    st.lastHealth.TimeErrorNS,
			AllanVariance:  st.stability.Variance(),
			UptimeSeconds:  int64(time.Since(st.createdAt).Seconds()),
			InsertionOrder: st.order,
		})
	}
	winner := Select(s.algorithm, snapshots, s.manualSelection)

	changed := winner != "" && winner != s.activeID
	if changed {
		if prev, ok := s.sources[s.activeID]; ok {
			prev.isActive = false
		}
		if next, ok := s.sources[winner]; ok {
			next.isActive = true
			s.stratum = effectiveStratum(next)
		}
		s.activeID = winner
	}
	s.mu.Unlock()

	if changed {
		s.emit(Event{Type: EventSourceSelected, SourceID: winner})
	}
}

func effectiveStratum(st *sourceState) uint8 {
	if st.source.Kind() == KindInternal {
		return 15
	}
	if st.lastHealth.Stratum == 0 && !st.lastHealth.InSync {
		return 15
	}
	return st.lastHealth.Stratum
}

// NoClockAvailable reports the soft-failure case of spec.md §4.A: no
// source is active when one is required. Exposed for callers that must
// branch on it explicitly rather than treating "" as a valid id.
func (s *Service) NoClockAvailable() error {
	if _, _, ok := s.GetSelected(); !ok {
		return gwerrors.ErrNoClock
	}
	return nil
}
