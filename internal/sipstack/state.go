package sipstack

import "fmt"

// DialogState is the lifecycle state of one SIP dialog leg. Named after
// spec.md §4.F's Leg dialog state (Trying, Ringing, Answered/Confirmed,
// Failed, Terminated), with an added Terminating state; the constants are
// declared Trying, Ringing, Answered, Terminating, Terminated, Failed.
type DialogState int

const (
	StateTrying DialogState = iota
	StateRinging
	StateAnswered
	StateTerminating
	StateTerminated
	StateFailed
)

func (s DialogState) String() string {
	switch s {
	case StateTrying:
		return "Trying"
	case StateRinging:
		return "Ringing"
	case StateAnswered:
		return "Answered"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

var validTransitions = map[DialogState][]DialogState{
	StateTrying:      {StateRinging, StateAnswered, StateFailed, StateTerminated},
	StateRinging:     {StateAnswered, StateFailed, StateTerminated},
	StateAnswered:    {StateTerminating, StateTerminated},
	StateTerminating: {StateTerminated},
	StateTerminated:  {},
	StateFailed:      {},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s DialogState) CanTransitionTo(next DialogState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no further transitions.
func (s DialogState) IsTerminal() bool {
	return s == StateTerminated || s == StateFailed
}

// TerminateReason explains why a dialog left the Answered state.
type TerminateReason int

const (
	ReasonLocalBYE TerminateReason = iota
	ReasonRemoteBYE
	ReasonCancel
	ReasonTimeout
	ReasonReplacedByFork
	ReasonError
)

func (r TerminateReason) String() string {
	switch r {
	case ReasonLocalBYE:
		return "LocalBYE"
	case ReasonRemoteBYE:
		return "RemoteBYE"
	case ReasonCancel:
		return "Cancel"
	case ReasonTimeout:
		return "Timeout"
	case ReasonReplacedByFork:
		return "ReplacedByFork"
	case ReasonError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}
