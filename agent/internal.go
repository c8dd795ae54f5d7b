package agent

import "github.com/kairoslabs/agentrt/events"

type itemKind int

const (
	kindSubmission itemKind = iota
	kindInterruptControl
)

// queuedItem is the single type flowing through the mailbox. Both regular
// submissions and interrupt requests pass through the same FIFO queue so
// that an interrupt issued after a turn's deltas always lands after them
// in processing order (see Agent.interrupt in turnloop.go).
type queuedItem struct {
	kind itemKind

	// kindSubmission
	sub *Submission

	// kindInterruptControl — the processor fills in PartialResponse from
	// its own accumulator and TurnNumber is supplied by the trigger loop,
	// which is the sole owner of turn numbering.
	reason        events.InterruptReason
	interruptedBy string
	turnNumber    int

	// ack, if non-nil, is closed once this item has been fully processed
	// (folded, broadcast, and queued for persistence).
	ack chan struct{}
}

type interruptRequest struct {
	reason events.InterruptReason
}
