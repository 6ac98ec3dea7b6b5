package gate

import "fmt"

// State is one step in a single invocation's lifecycle:
//
//	idle → checking → granted → executing → done
//	                → denied  → done
//	       error    → denied
//
// Free features skip checking and go straight to granted. No state is ever
// re-entered; every Invoke call gets a fresh invocation, so nothing leaks
// between attempts.
type State string

const (
	StateIdle      State = "idle"
	StateChecking  State = "checking"
	StateGranted   State = "granted"
	StateExecuting State = "executing"
	StateDenied    State = "denied"
	StateError     State = "error"
	StateDone      State = "done"
)

var transitions = map[State][]State{
	StateIdle:      {StateChecking, StateGranted},
	StateChecking:  {StateGranted, StateDenied, StateError},
	StateGranted:   {StateExecuting},
	StateExecuting: {StateDone},
	StateError:     {StateDenied},
	StateDenied:    {StateDone},
	StateDone:      {},
}

// invocation tracks the lifecycle of one Invoke call.
type invocation struct {
	state State
}

func newInvocation() *invocation {
	return &invocation{state: StateIdle}
}

func (inv *invocation) to(next State) error {
	for _, allowed := range transitions[inv.state] {
		if allowed == next {
			inv.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.state, next)
}
