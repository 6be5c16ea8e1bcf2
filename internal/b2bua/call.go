// Package b2bua implements the B2BUA call engine (spec.md §4.F): a Call
// aggregates two independent Legs, each its own SIP dialog state machine,
// joined by the table in spec.md's §4.F comment block. Routing resolves
// Leg B's target; the media relay plane (internal/mediarelay) bridges the
// two legs' RTP once both are answered.
package b2bua

import (
	"sync"
	"time"

	"github.com/redfire/gateway/internal/mediarelay"
	"github.com/redfire/gateway/internal/sipstack"
)

// CallState is the aggregate state of a Call, the join of its two Legs'
// dialog states per spec.md §4.F.
type CallState int

const (
	StateInitiating CallState = iota
	StateRinging
	StateAnswered
	StateEstablished
	StateTerminating
	StateTerminated
	StateFailed
)

func (s CallState) String() string {
	switch s {
	case StateInitiating:
		return "Initiating"
	case StateRinging:
		return "Ringing"
	case StateAnswered:
		return "Answered"
	case StateEstablished:
		return "Established"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// DisconnectCause records why a Call ended, for the CDR.
type DisconnectCause int

const (
	CauseNormal DisconnectCause = iota
	CauseNoRoute
	CauseUnreachable
	CauseNegotiationFailed
	CauseCalleeBusy
	CauseCalleeRejected
	CauseTimeout
	CauseInternalError
	CauseMaxCallDurationExceeded
)

// Call is the aggregate root spec.md §4 describes: identity, both legs,
// routing decision, and the media session id bridging them. A process-
// wide table keyed by call_id owns Call values (the Arena/index pattern
// spec.md's Design Notes call for); other subsystems hold only the id.
type Call struct {
	mu sync.RWMutex

	ID       string
	Caller   string
	Callee   string
	state    CallState
	CreatedAt   time.Time
	AnsweredAt  *time.Time
	EndedAt     *time.Time

	Relay *mediarelay.Relay

	LegA *Leg
	LegB *Leg

	RoutingDecision  *RoutingRule
	MediaSessionID   string
	DisconnectCause  DisconnectCause

	// workerKey is the value hashed for worker affinity (spec.md's
	// scheduling model: one worker owns a Call for its whole lifetime).
	workerKey string

	// durationTimer fires the hard wall-clock cap (spec.md's
	// max_call_duration_s); stopped on any other path to terminal state.
	durationTimer *time.Timer
}

// NewCall creates a Call with Leg A already attached, in StateInitiating.
func NewCall(id string, legA *Leg) *Call {
	return &Call{
		ID:        id,
		state:     StateInitiating,
		CreatedAt: time.Now(),
		LegA:      legA,
		workerKey: id,
	}
}

// State returns the current aggregate state.
func (c *Call) State() CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// WorkerKey returns the value used to hash this call onto a worker.
func (c *Call) WorkerKey() string {
	return c.workerKey
}

// AttachLegB installs the originated second leg.
func (c *Call) AttachLegB(leg *Leg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LegB = leg
}

// SetRelay installs the media relay bridging the two legs, instantiated
// once both are answered (spec.md §4.G).
func (c *Call) SetRelay(r *mediarelay.Relay) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Relay = r
}

// SetDurationTimer installs the wall-clock duration cap timer so a later
// teardown on any other path can cancel it.
func (c *Call) SetDurationTimer(t *time.Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durationTimer = t
}

// StopDurationTimer idempotently cancels the duration cap timer, if one
// was armed. Safe to call even if the timer already fired.
func (c *Call) StopDurationTimer() {
	c.mu.Lock()
	t := c.durationTimer
	c.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

// CloseRelay idempotently tears down the media relay, if any. If the call
// never reached both-answered (so no relay was ever installed) but one or
// both legs already had a bare endpoint bound, those are closed directly so
// a failed negotiation never leaks a socket.
func (c *Call) CloseRelay() {
	c.mu.Lock()
	r := c.Relay
	legA, legB := c.LegA, c.LegB
	c.mu.Unlock()
	if r != nil {
		r.Close()
		return
	}
	if legA != nil {
		if ep := legA.Endpoint(); ep != nil {
			ep.Close()
		}
	}
	if legB != nil {
		if ep := legB.Endpoint(); ep != nil {
			ep.Close()
		}
	}
}

// recompute derives the aggregate Call state from both legs' dialog
// states, per spec.md §4.F's join table, and records answered_at/ended_at
// transitions as they occur. Must be called with c.mu held.
func (c *Call) recompute() {
	if c.LegA == nil {
		return
	}
	aState := c.LegA.DialogState()

	var bState sipstack.DialogState = sipstack.StateTrying
	haveB := c.LegB != nil
	if haveB {
		bState = c.LegB.DialogState()
	}

	next := c.state
	switch {
	case aState == sipstack.StateFailed || aState == sipstack.StateTerminated:
		next = c.terminalFor(aState)
	case haveB && (bState == sipstack.StateFailed || bState == sipstack.StateTerminated):
		next = c.terminalFor(bState)
	case aState == sipstack.StateAnswered && haveB && bState == sipstack.StateAnswered:
		next = StateEstablished
		if c.AnsweredAt == nil {
			now := time.Now()
			c.AnsweredAt = &now
		}
	case aState == sipstack.StateAnswered:
		next = StateAnswered
	case aState == sipstack.StateRinging || (haveB && bState == sipstack.StateRinging):
		next = StateRinging
	default:
		next = StateInitiating
	}
	c.state = next
}

func (c *Call) terminalFor(s sipstack.DialogState) CallState {
	if s == sipstack.StateFailed {
		return StateFailed
	}
	return StateTerminating
}

// Recompute re-derives the aggregate state after a leg's dialog state has
// changed. Call engines invoke this from the dialog-terminated/answered
// callbacks.
func (c *Call) Recompute() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recompute()
}

// MarkTerminated finalizes the call's end time and terminal state.
func (c *Call) MarkTerminated(cause DisconnectCause) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.EndedAt = &now
	c.DisconnectCause = cause
	if cause == CauseNormal {
		c.state = StateTerminated
	} else {
		c.state = StateFailed
	}
}

// Duration returns the call's wall-clock duration so far (or total, if
// ended).
func (c *Call) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	end := time.Now()
	if c.EndedAt != nil {
		end = *c.EndedAt
	}
	return end.Sub(c.CreatedAt)
}

// Snapshot is an immutable, race-free view of a Call for CDR emission and
// the management API.
type Snapshot struct {
	ID              string
	Caller          string
	Callee          string
	State           CallState
	CreatedAt       time.Time
	AnsweredAt      *time.Time
	EndedAt         *time.Time
	DisconnectCause DisconnectCause
	MediaSessionID  string
	RelayStats      mediarelay.Stats
}

// Snapshot captures the call's current state without exposing internal
// pointers.
func (c *Call) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		ID:              c.ID,
		Caller:          c.Caller,
		Callee:          c.Callee,
		State:           c.state,
		CreatedAt:       c.CreatedAt,
		AnsweredAt:      c.AnsweredAt,
		EndedAt:         c.EndedAt,
		DisconnectCause: c.DisconnectCause,
		MediaSessionID:  c.MediaSessionID,
	}
	if c.Relay != nil {
		snap.RelayStats = c.Relay.Stats()
	}
	return snap
}
