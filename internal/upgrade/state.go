// Package upgrade holds the multi-step orchestrators for upgrading and
// rolling back the management node and its database. Every destructive step
// is preceded by a snapshot, failures halt the machine, and recovery is the
// operator's call: nothing here auto-rolls-back or auto-restarts.
package upgrade

import "context"

// State names the phase a lifecycle machine is in. Failed is reachable from
// every non-terminal state.
type State uint8

const (
	Idle State = iota
	BackingUp
	Stopping
	Replacing
	Restoring
	Verifying
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case BackingUp:
		return "BackingUp"
	case Stopping:
		return "Stopping"
	case Replacing:
		return "Replacing"
	case Restoring:
		return "Restoring"
	case Verifying:
		return "Verifying"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	}
	return "Unknown"
}

// step is one phase of a machine.
type step struct {
	state State
	run   func(ctx context.Context) error
}

// runSteps drives the machine: states advance in order, the first failing
// step leaves the machine in Failed, and the failing state is returned with
// the error so callers can report where things halted.
func runSteps(ctx context.Context, steps []step, state *State) (State, error) {
	for _, s := range steps {
		*state = s.state
		if err := s.run(ctx); err != nil {
			failedAt := *state
			*state = Failed
			return failedAt, err
		}
	}
	*state = Done
	return Done, nil
}
