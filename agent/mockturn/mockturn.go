// Package mockturn provides a scriptable agent.TurnExecutor for tests and
// examples. It returns configured responses without calling any model,
// using a repository-style lookup keyed by turn number so a single
// Executor can drive multi-turn scenarios deterministically.
package mockturn

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kairoslabs/agentrt/agent"
	"github.com/kairoslabs/agentrt/reducer"
)

// Turn describes one scripted response.
type Turn struct {
	// Deltas, if set, are streamed one at a time with DeltaInterval between
	// them before the final assistant message is emitted. If empty, the
	// full Response is streamed as a single delta.
	Deltas []string

	// Response is the final assistant message content. If empty and
	// Deltas is set, the concatenation of Deltas is used.
	Response string

	// Delay is waited before the first delta is emitted, simulating
	// provider latency. It is select-ed against ctx.Done so cancellation
	// and timeouts still take effect mid-wait.
	Delay time.Duration

	// DeltaInterval is waited between successive Deltas.
	DeltaInterval time.Duration

	// Err, if set, is returned as a turn failure instead of a response.
	// Any configured Deltas before the failure are still streamed first.
	Err error

	// Hang, if true, never produces a terminal chunk — the turn can only
	// end via cancellation or TurnTimeout. Used to exercise interrupt and
	// timeout handling deterministically.
	Hang bool
}

// Executor is a scriptable agent.TurnExecutor. The zero value returns a
// fixed default response for every turn; configure per-turn behavior with
// WithTurn or a blanket default with WithDefault.
type Executor struct {
	mu       sync.Mutex
	byTurn   map[int]Turn
	def      Turn
	calls    []reducer.State
}

// New returns an Executor whose default turn echoes a simple acknowledgment.
func New() *Executor {
	return &Executor{
		byTurn: make(map[int]Turn),
		def:    Turn{Response: "mock response"},
	}
}

// WithDefault sets the turn used when no per-turn script matches.
func (e *Executor) WithDefault(t Turn) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.def = t
	return e
}

// WithTurn scripts the response for a specific 1-based turn number.
func (e *Executor) WithTurn(turnNumber int, t Turn) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byTurn[turnNumber] = t
	return e
}

// Calls returns the reducer.State snapshot passed to Execute for every
// call made so far, in order. Useful for asserting an executor observed
// the expected conversation history.
func (e *Executor) Calls() []reducer.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]reducer.State, len(e.calls))
	copy(out, e.calls)
	return out
}

// Execute implements agent.TurnExecutor.
func (e *Executor) Execute(ctx context.Context, state reducer.State) <-chan agent.TurnChunk {
	turnNumber := state.CurrentTurnNumber + 1

	e.mu.Lock()
	e.calls = append(e.calls, state)
	t, ok := e.byTurn[turnNumber]
	if !ok {
		t = e.def
	}
	e.mu.Unlock()

	out := make(chan agent.TurnChunk)
	go e.run(ctx, t, out)
	return out
}

func (e *Executor) run(ctx context.Context, t Turn, out chan<- agent.TurnChunk) {
	defer close(out)

	if t.Delay > 0 {
		if !sleep(ctx, t.Delay) {
			return
		}
	}

	for i, d := range t.Deltas {
		select {
		case <-ctx.Done():
			return
		case out <- agent.DeltaChunk(d):
		}
		if i < len(t.Deltas)-1 && t.DeltaInterval > 0 {
			if !sleep(ctx, t.DeltaInterval) {
				return
			}
		}
	}

	if t.Hang {
		<-ctx.Done()
		return
	}

	if t.Err != nil {
		select {
		case <-ctx.Done():
		case out <- agent.ErrChunk(t.Err):
		}
		return
	}

	response := t.Response
	if response == "" && len(t.Deltas) > 0 {
		response = strings.Join(t.Deltas, "")
	}

	select {
	case <-ctx.Done():
	case out <- agent.AssistantChunk(response):
	}
}

// sleep waits for d or ctx cancellation, whichever comes first, reporting
// whether the sleep completed without cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ agent.TurnExecutor = (*Executor)(nil)
