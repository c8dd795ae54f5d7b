package agent

import "github.com/kairoslabs/agentrt/events"

// Submission is what callers hand to AddEvent: a payload and whether it
// should trigger a turn. The processor fills in id, timestamp, and parent
// when it dequeues the submission — callers never assign those themselves.
type Submission struct {
	Payload           events.Payload
	TriggersAgentTurn bool
}
