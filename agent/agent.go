// Package agent implements the per-name actor: a mailbox-driven processor
// that assigns ids, chains, reduces, broadcasts, and persists events, plus
// a debounced trigger loop that starts, interrupts, and times out turns.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kairoslabs/agentrt/events"
	"github.com/kairoslabs/agentrt/logger"
	"github.com/kairoslabs/agentrt/reducer"
)

// shutdownGraceTimeout bounds how long EndSession waits for the processor
// and background persistence worker to finish pending work.
const shutdownGraceTimeout = 10 * time.Second

// Agent is a named, long-lived actor owning one event log. All exported
// methods are safe for concurrent use; state mutation happens exclusively
// on the processor goroutine (see processorLoop).
type Agent struct {
	cfg Config

	mailbox *unboundedQueue[*queuedItem]
	appendQ *unboundedQueue[*events.Event]
	hub     *events.Hub

	triggerSub *events.Subscription

	interruptCh chan interruptRequest
	timeoutCh   chan struct{}
	shutdownCh  chan struct{}
	fatalCh     chan struct{}

	triggerDone   chan struct{}
	processorDone chan struct{}
	appendDone    chan struct{}

	endOnce   sync.Once
	fatalOnce sync.Once

	// mu guards every field the processor owns. The processor is the only
	// writer; every other goroutine only reads, under RLock, taking a
	// value snapshot before releasing it (spec's "atomically-swapped
	// snapshot" design note).
	mu          sync.RWMutex
	state       reducer.State
	lastEventID string
	log         []*events.Event
	partial     strings.Builder
	fatalErr    error
}

// New constructs an Agent, replaying any persisted history for its context
// name and emitting a fresh SessionStarted (and, if configured, a
// SetLlmConfig) before returning. A Load failure is fatal: New returns the
// error rather than handing back a half-initialized Agent.
func New(name string, opts ...Option) (*Agent, error) {
	cfg := newConfig(name, opts)
	if cfg.Name == "" {
		return nil, ErrNameRequired
	}
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	if cfg.Executor == nil {
		return nil, ErrTurnExecutorRequired
	}

	persisted, err := cfg.Store.Load(context.Background(), cfg.ContextName)
	if err != nil {
		return nil, fmt.Errorf("agent %s: load history: %w", cfg.Name, err)
	}

	state, err := reducer.Reduce(reducer.State{}, persisted)
	if err != nil {
		return nil, &ReducerFault{AgentName: cfg.Name, Err: err}
	}

	lastEventID := ""
	if n := len(persisted); n > 0 {
		lastEventID = persisted[n-1].ID
	}

	initialTurnNumber := 0
	for _, e := range persisted {
		if p, ok := e.Payload.(events.AgentTurnStartedPayload); ok && p.TurnNumber > initialTurnNumber {
			initialTurnNumber = p.TurnNumber
		}
	}

	a := &Agent{
		cfg:           cfg,
		mailbox:       newUnboundedQueue[*queuedItem](),
		appendQ:       newUnboundedQueue[*events.Event](),
		hub:           events.NewHub(),
		state:         state,
		lastEventID:   lastEventID,
		log:           append([]*events.Event(nil), persisted...),
		interruptCh:   make(chan interruptRequest, 1),
		timeoutCh:     make(chan struct{}, 1),
		shutdownCh:    make(chan struct{}),
		fatalCh:       make(chan struct{}),
		triggerDone:   make(chan struct{}),
		processorDone: make(chan struct{}),
		appendDone:    make(chan struct{}),
	}

	a.triggerSub = a.hub.Subscribe()

	go a.appendLoop()
	go a.processorLoop()
	go a.triggerLoop(initialTurnNumber)

	a.submitAndWait(events.SessionStartedPayload{}, false)
	if cfg.InitialConfig != nil {
		a.submitAndWait(*cfg.InitialConfig, false)
	}

	return a, nil
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.cfg.Name }

// AddEvent enqueues payload for processing and returns immediately. The
// processor assigns id, timestamp, and parentEventId when it dequeues the
// submission; this call never fails synchronously.
func (a *Agent) AddEvent(payload events.Payload, triggersAgentTurn bool) {
	a.submit(payload, triggersAgentTurn)
}

// Subscribe returns a live stream handle. Any event whose processing
// begins after Subscribe returns is guaranteed to be delivered.
func (a *Agent) Subscribe() *events.Subscription {
	return a.hub.Subscribe()
}

// GetLog returns a snapshot of every event processed so far, in order,
// including in-memory TextDelta entries.
func (a *Agent) GetLog() []*events.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*events.Event, len(a.log))
	for i, e := range a.log {
		out[i] = e.Clone()
	}
	return out
}

// GetState returns the current ReducedState snapshot.
func (a *Agent) GetState() reducer.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Clone()
}

// IsIdle reports whether no turn is currently open.
func (a *Agent) IsIdle() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return !a.state.IsTurnInProgress()
}

// Err returns the fatal reducer error that stopped this agent, if any.
func (a *Agent) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fatalErr
}

// InterruptTurn requests cancellation of the currently open turn with
// reason user_cancel. It is a no-op if no turn is open.
func (a *Agent) InterruptTurn() {
	select {
	case a.interruptCh <- interruptRequest{reason: events.ReasonUserCancel}:
	case <-a.shutdownCh:
	case <-a.fatalCh:
	}
}

// EndSession idempotently, gracefully terminates the agent: interrupting
// any open turn with reason session_ended, emitting SessionEnded, and
// closing subscriptions. It blocks until shutdown completes or a grace
// period elapses.
func (a *Agent) EndSession() {
	a.endOnce.Do(func() { close(a.shutdownCh) })

	doneAll := make(chan struct{})
	go func() {
		<-a.triggerDone
		<-a.processorDone
		<-a.appendDone
		close(doneAll)
	}()

	select {
	case <-doneAll:
	case <-time.After(shutdownGraceTimeout):
		logger.Warn("agent shutdown exceeded grace period", "agent", a.cfg.Name)
	}
}

func (a *Agent) submit(payload events.Payload, triggers bool) {
	a.mailbox.push(&queuedItem{kind: kindSubmission, sub: &Submission{Payload: payload, TriggersAgentTurn: triggers}})
	a.reportMailboxDepth()
}

func (a *Agent) submitAndWait(payload events.Payload, triggers bool) {
	ack := make(chan struct{})
	a.mailbox.push(&queuedItem{kind: kindSubmission, sub: &Submission{Payload: payload, TriggersAgentTurn: triggers}, ack: ack})
	a.reportMailboxDepth()
	<-ack
}

// reportMailboxDepth publishes the mailbox's current backlog so deployers
// can see whether a processor is keeping up with submissions.
func (a *Agent) reportMailboxDepth() {
	a.cfg.Metrics.MailboxDepth(a.cfg.Name, a.mailbox.len())
}

func formatEventID(contextName string, counter int) string {
	return fmt.Sprintf("%s:%04d", contextName, counter)
}
