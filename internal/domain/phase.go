package domain

// Phase is a step of the flash state machine.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseUnmounting
	PhaseWriting
	PhaseFinalizing
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not started"
	case PhaseUnmounting:
		return "unmounting"
	case PhaseWriting:
		return "writing"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// CanTransition reports whether the state machine allows moving from p to next.
// Failed is reachable from every non-terminal phase.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	return next == p+1
}
