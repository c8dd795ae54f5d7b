package agent

import "errors"

var (
	// ErrTurnExecutorRequired is returned by New when no TurnExecutor was
	// configured; an agent that can never start a turn is a misconfiguration.
	ErrTurnExecutorRequired = errors.New("agent: turn executor is required")

	// ErrNameRequired is returned by New when no agent name was given.
	ErrNameRequired = errors.New("agent: name is required")

	// ErrStoreRequired is returned by New when no Store was configured.
	ErrStoreRequired = errors.New("agent: event store is required")

	// ErrAlreadyClosed is returned by operations attempted after EndSession
	// has completed.
	ErrAlreadyClosed = errors.New("agent: session already ended")
)

// ReducerFault wraps a reducer error that stopped an agent's processor.
// Per the error taxonomy, this is a programming-bug-class failure: fatal
// for the agent, surfaced to any caller still waiting on it.
type ReducerFault struct {
	AgentName string
	Err       error
}

func (f *ReducerFault) Error() string {
	return "agent " + f.AgentName + ": reducer fault: " + f.Err.Error()
}

func (f *ReducerFault) Unwrap() error { return f.Err }
