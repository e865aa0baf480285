package syncer

// State is a step of the engine lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingProvider
	StateTestingProvider
	StateReconciling
	StateActive
	StateFailed
	// StateStopped follows Active once the engine is shut down.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingProvider:
		return "awaiting_provider"
	case StateTestingProvider:
		return "testing_provider"
	case StateReconciling:
		return "reconciling"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
