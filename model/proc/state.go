package proc

// State represents the lifecycle state of a process record
type State string

const (
	StateUnused   State = "unused"
	StateEmbryo   State = "embryo"
	StateSleeping State = "sleeping"
	StateRunnable State = "runnable"
	StateRunning  State = "running"
	StateZombie   State = "zombie"
)

// transitions lists every legal state change of a record.
var transitions = map[State][]State{
	StateUnused:   {StateEmbryo},
	StateEmbryo:   {StateRunnable, StateUnused}, // unused: allocation rollback
	StateRunnable: {StateRunning},
	StateRunning:  {StateRunnable, StateSleeping, StateZombie},
	StateSleeping: {StateRunnable},
	StateZombie:   {StateUnused},
}

// CanTransition reports whether a record in state s may move to state to
func (s State) CanTransition(to State) bool {
	for _, candidate := range transitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

// InUse returns true for every state but unused
func (s State) InUse() bool {
	return s != StateUnused && s != ""
}

// Short returns the fixed-width label used by process listings.
func (s State) Short() string {
	switch s {
	case StateUnused:
		return "unused"
	case StateEmbryo:
		return "embryo"
	case StateSleeping:
		return "sleep "
	case StateRunnable:
		return "runble"
	case StateRunning:
		return "run   "
	case StateZombie:
		return "zombie"
	}
	return "???"
}
