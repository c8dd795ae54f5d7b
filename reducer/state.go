// Package reducer folds an agent's event log into its derived state. It is
// pure: no I/O, no clock reads, no randomness — every field of the
// resulting State is a deterministic function of the events folded into it.
package reducer

import "github.com/kairoslabs/agentrt/events"

// Role identifies the speaker of a projected Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a projection of a SystemPrompt/UserMessage/AssistantMessage
// event. Consecutive same-role messages are kept as separate entries —
// merging them is a display concern, not a reducer concern.
type Message struct {
	Role    Role
	Content string
	Images  []string // only ever set for RoleUser
}

// State is the full derived view of an agent's log at some point in time.
// It is never itself persisted; it is always rebuilt by replay or
// incrementally maintained by folding new events in.
type State struct {
	Messages          []Message
	LLMConfig         *events.SetLlmConfigPayload
	NextEventNumber   int
	CurrentTurnNumber int

	// AgentTurnStartedAtEventID is the id of the currently open turn's
	// AgentTurnStarted event, or "" if no turn is in progress.
	AgentTurnStartedAtEventID string
}

// IsTurnInProgress reports whether a turn is currently open.
func (s State) IsTurnInProgress() bool {
	return s.AgentTurnStartedAtEventID != ""
}

// Clone returns a deep-enough copy of s safe to hand to a reader while the
// owning actor continues to mutate its own copy.
func (s State) Clone() State {
	out := s
	if len(s.Messages) > 0 {
		out.Messages = make([]Message, len(s.Messages))
		for i, m := range s.Messages {
			mc := m
			if m.Images != nil {
				mc.Images = append([]string(nil), m.Images...)
			}
			out.Messages[i] = mc
		}
	}
	if s.LLMConfig != nil {
		cfg := *s.LLMConfig
		out.LLMConfig = &cfg
	}
	return out
}
