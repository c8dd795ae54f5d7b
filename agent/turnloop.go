package agent

import (
	"context"
	"time"

	"github.com/kairoslabs/agentrt/events"
	"github.com/kairoslabs/agentrt/logger"
)

// triggerLoop is the separate worker fed by the broadcast hub (section 5).
// It owns turn numbering and the turn state machine exclusively; the only
// state it shares with the processor flows through queuedItems on the
// mailbox, so there is never a race between "a turn is open" as the
// trigger loop understands it and as the processor's reduced state
// understands it — both are driven by the same FIFO.
func (a *Agent) triggerLoop(initialTurnNumber int) {
	defer close(a.triggerDone)

	turnNumber := initialTurnNumber
	var (
		turnOpen   bool
		turnCancel context.CancelFunc
		turnDone   chan struct{}
		debounce   *time.Timer
		pending    *events.Event
	)

	stopDebounce := func() {
		if debounce != nil {
			debounce.Stop()
			debounce = nil
		}
	}

	interrupt := func(reason events.InterruptReason, interruptedBy string) {
		if !turnOpen {
			return
		}
		turnCancel()
		<-turnDone // ensures no further deltas from this turn can be queued after the control message below
		a.mailbox.push(&queuedItem{
			kind:          kindInterruptControl,
			reason:        reason,
			interruptedBy: interruptedBy,
			turnNumber:    turnNumber,
		})
		a.reportMailboxDepth()
		a.cfg.Metrics.TurnInterrupted(a.cfg.Name, string(reason))
		logger.TurnInterrupted(a.cfg.Name, turnNumber, string(reason))
		turnOpen = false
	}

	start := func() {
		turnNumber++
		n := turnNumber

		ctx, cancel := context.WithCancel(context.Background())
		if a.cfg.TurnTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, a.cfg.TurnTimeout)
		}
		turnCancel = cancel
		turnDone = make(chan struct{})
		turnOpen = true

		a.submit(events.AgentTurnStartedPayload{TurnNumber: n}, false)
		a.cfg.Metrics.TurnStarted(a.cfg.Name)
		logger.TurnStarted(a.cfg.Name, n)

		go a.runTurn(ctx, turnDone, n)
	}

	for {
		var debounceC <-chan time.Time
		if debounce != nil {
			debounceC = debounce.C
		}

		select {
		case e, ok := <-a.triggerSub.C():
			if !ok {
				return
			}
			if !e.TriggersAgentTurn {
				continue
			}
			pending = e
			stopDebounce()
			debounce = time.NewTimer(a.cfg.DebounceWindow)

		case <-debounceC:
			t := pending
			pending = nil
			debounce = nil
			interrupt(events.ReasonUserNewMessage, t.ID)
			start()

		case req := <-a.interruptCh:
			interrupt(req.reason, "")

		case <-a.timeoutCh:
			interrupt(events.ReasonTimeout, "")

		case <-a.fatalCh:
			return

		case <-a.shutdownCh:
			stopDebounce()
			interrupt(events.ReasonSessionEnded, "")
			a.submit(events.SessionEndedPayload{}, false)
			return
		}
	}
}

// runTurn drives a TurnExecutor's stream, forwarding each chunk back
// through the pipeline via AddEvent-equivalent submissions. It never
// emits anything after observing cancellation — the interrupter in
// triggerLoop owns the AgentTurnInterrupted event in that case.
func (a *Agent) runTurn(ctx context.Context, done chan struct{}, turnNumber int) {
	defer close(done)

	startedAt := time.Now()
	chunks := a.cfg.Executor.Execute(ctx, a.GetState())

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				select {
				case a.timeoutCh <- struct{}{}:
				default:
				}
			}
			return

		case chunk, ok := <-chunks:
			if !ok {
				return
			}

			switch {
			case chunk.Err != nil:
				a.submit(events.AgentTurnFailedPayload{TurnNumber: turnNumber, Error: chunk.Err.Error()}, false)
				a.cfg.Metrics.TurnFailed(a.cfg.Name)
				logger.TurnFailed(a.cfg.Name, turnNumber, chunk.Err)
				return

			case chunk.isAssistant:
				a.submit(events.AssistantMessagePayload{Content: chunk.Assistant}, false)
				duration := time.Since(startedAt)
				a.submit(events.AgentTurnCompletedPayload{TurnNumber: turnNumber, DurationMs: duration.Milliseconds()}, false)
				a.cfg.Metrics.TurnCompleted(a.cfg.Name, duration)
				logger.TurnCompleted(a.cfg.Name, turnNumber, duration.Milliseconds())
				return

			default:
				a.submit(events.TextDeltaPayload{Delta: chunk.Delta}, false)
			}
		}
	}
}
