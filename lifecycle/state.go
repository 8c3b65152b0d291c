package lifecycle

import "fmt"

// State is the reload state of the manager.
type State uint8

const (
	StateWaiting State = iota
	StateCompiling
	StateLoaded
	StateRunning
	StateUnloaded
	StateCompileFailed
)

var stateNames = [...]string{"waiting", "compiling", "loaded", "running", "unloaded", "compile_failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// next lists the legal successors of each state.
var next = map[State][]State{
	StateWaiting:       {StateCompiling},
	StateCompiling:     {StateLoaded, StateCompileFailed},
	StateLoaded:        {StateRunning, StateUnloaded},
	StateRunning:       {StateUnloaded},
	StateUnloaded:      {StateWaiting, StateCompiling},
	StateCompileFailed: {StateWaiting, StateCompiling},
}

// CanTransition reports whether to is a legal successor of s.
func (s State) CanTransition(to State) bool {
	for _, n := range next[s] {
		if n == to {
			return true
		}
	}
	return false
}
