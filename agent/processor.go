package agent

import (
	"context"
	"time"

	"github.com/kairoslabs/agentrt/events"
	"github.com/kairoslabs/agentrt/logger"
	"github.com/kairoslabs/agentrt/reducer"
)

// processorLoop is the single writer of agent state (section 5: "single
// writer discipline"). It drains the mailbox strictly in submission order
// and, for every item, performs steps 2-6 of the processing pipeline as
// one atomic unit: assign id, reduce, broadcast, then queue persistence.
func (a *Agent) processorLoop() {
	defer a.appendQ.close()
	defer close(a.processorDone)

	for {
		item, ok := a.mailbox.pop(a.fatalCh)
		if !ok {
			return
		}
		a.reportMailboxDepth()

		ended, err := a.processOne(item)
		if item.ack != nil {
			close(item.ack)
		}
		if err != nil {
			a.handleFatal(err)
			return
		}
		if ended {
			return
		}
	}
}

func (a *Agent) processOne(item *queuedItem) (ended bool, err error) {
	switch item.kind {
	case kindSubmission:
		return a.applySubmission(item.sub)
	case kindInterruptControl:
		return false, a.applyInterruptControl(item.reason, item.interruptedBy, item.turnNumber)
	default:
		return false, nil
	}
}

func (a *Agent) applySubmission(sub *Submission) (ended bool, err error) {
	a.mu.Lock()

	e := &events.Event{
		ID:                formatEventID(a.cfg.ContextName, a.state.NextEventNumber),
		Timestamp:         time.Now().UTC(),
		AgentName:         a.cfg.Name,
		ParentEventID:     a.lastEventID,
		TriggersAgentTurn: sub.TriggersAgentTurn,
		Payload:           sub.Payload,
	}

	newState, rerr := reducer.Reduce(a.state, []*events.Event{e})
	if rerr != nil {
		a.mu.Unlock()
		return false, &ReducerFault{AgentName: a.cfg.Name, Err: rerr}
	}

	switch p := e.Payload.(type) {
	case events.AgentTurnStartedPayload:
		a.partial.Reset()
	case events.TextDeltaPayload:
		a.partial.WriteString(p.Delta)
	}

	a.state = newState
	a.lastEventID = e.ID
	a.log = append(a.log, e)
	ended = e.Kind() == events.KindSessionEnded
	a.mu.Unlock()

	a.finalize(e, ended)
	return ended, nil
}

func (a *Agent) applyInterruptControl(reason events.InterruptReason, interruptedBy string, turnNumber int) error {
	a.mu.Lock()

	if !a.state.IsTurnInProgress() {
		a.mu.Unlock()
		return nil
	}

	var partial *string
	if a.partial.Len() > 0 {
		s := a.partial.String()
		partial = &s
	}

	e := &events.Event{
		ID:            formatEventID(a.cfg.ContextName, a.state.NextEventNumber),
		Timestamp:     time.Now().UTC(),
		AgentName:     a.cfg.Name,
		ParentEventID: a.lastEventID,
		Payload: events.AgentTurnInterruptedPayload{
			TurnNumber:           turnNumber,
			Reason:               reason,
			PartialResponse:      partial,
			InterruptedByEventID: interruptedBy,
		},
	}

	newState, rerr := reducer.Reduce(a.state, []*events.Event{e})
	if rerr != nil {
		a.mu.Unlock()
		return &ReducerFault{AgentName: a.cfg.Name, Err: rerr}
	}

	a.state = newState
	a.lastEventID = e.ID
	a.partial.Reset()
	a.log = append(a.log, e)
	a.mu.Unlock()

	a.finalize(e, false)
	return nil
}

// finalize performs steps 5-6 shared by both submission kinds: synchronous
// broadcast, then background persistence for everything but TextDelta.
func (a *Agent) finalize(e *events.Event, sessionEnded bool) {
	a.hub.Publish(e)

	a.cfg.Metrics.EventProcessed(a.cfg.Name, string(e.Kind()))
	logger.EventProcessed(a.cfg.Name, e.ID, string(e.Kind()), e.TriggersAgentTurn)

	if sessionEnded {
		a.hub.Close()
	}

	if e.Persisted() {
		a.appendQ.push(e)
	}
}

func (a *Agent) handleFatal(err error) {
	a.fatalOnce.Do(func() {
		a.mu.Lock()
		a.fatalErr = err
		a.mu.Unlock()

		close(a.fatalCh)
		logger.Error("agent processor stopped on fatal error", "agent", a.cfg.Name, "error", err)
		a.hub.Close()
	})
}

// appendLoop is the single background persistence worker. Because it is
// the only reader of appendQ and processes items strictly FIFO, appends
// for a given agent never reorder relative to submission order even
// though they run off the processor's critical path.
func (a *Agent) appendLoop() {
	defer close(a.appendDone)

	for {
		e, ok := a.appendQ.pop(nil)
		if !ok {
			return
		}
		if err := a.cfg.Store.Append(context.Background(), a.cfg.ContextName, []*events.Event{e}); err != nil {
			a.cfg.Metrics.PersistenceFailure(a.cfg.Name)
			logger.PersistenceFailure(a.cfg.Name, err)
		}
	}
}
