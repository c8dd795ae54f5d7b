package events

// InterruptReason enumerates why a turn was interrupted.
type InterruptReason string

const (
	ReasonUserCancel      InterruptReason = "user_cancel"
	ReasonUserNewMessage  InterruptReason = "user_new_message"
	ReasonTimeout         InterruptReason = "timeout"
	ReasonSessionEnded    InterruptReason = "session_ended"
)

// SystemPromptPayload carries the system prompt text.
type SystemPromptPayload struct {
	Content string
}

// Kind implements Payload.
func (SystemPromptPayload) Kind() Kind { return KindSystemPrompt }

// UserMessagePayload carries a user-authored message, optionally with images.
type UserMessagePayload struct {
	Content string
	Images  []string // data-URI or URL, opaque to the reducer
}

// Kind implements Payload.
func (UserMessagePayload) Kind() Kind { return KindUserMessage }

// AssistantMessagePayload carries the final assistant message for a turn.
type AssistantMessagePayload struct {
	Content string
}

// Kind implements Payload.
func (AssistantMessagePayload) Kind() Kind { return KindAssistantMessage }

// TextDeltaPayload carries one incremental chunk of assistant output.
// TextDelta is ephemeral: broadcast and kept in memory, never persisted.
type TextDeltaPayload struct {
	Delta string
}

// Kind implements Payload.
func (TextDeltaPayload) Kind() Kind { return KindTextDelta }

// SetLlmConfigPayload replaces the agent's active LLM configuration.
type SetLlmConfigPayload struct {
	APIFormat   string
	Model       string
	BaseURL     string
	APIKeyEnvVar string
}

// Kind implements Payload.
func (SetLlmConfigPayload) Kind() Kind { return KindSetLlmConfig }

// SessionStartedPayload marks the start of an agent lifetime.
type SessionStartedPayload struct{}

// Kind implements Payload.
func (SessionStartedPayload) Kind() Kind { return KindSessionStarted }

// SessionEndedPayload marks the graceful end of an agent lifetime.
type SessionEndedPayload struct{}

// Kind implements Payload.
func (SessionEndedPayload) Kind() Kind { return KindSessionEnded }

// AgentTurnStartedPayload opens a turn.
type AgentTurnStartedPayload struct {
	TurnNumber int
}

// Kind implements Payload.
func (AgentTurnStartedPayload) Kind() Kind { return KindAgentTurnStarted }

// AgentTurnCompletedPayload closes a turn successfully.
type AgentTurnCompletedPayload struct {
	TurnNumber int
	DurationMs int64
}

// Kind implements Payload.
func (AgentTurnCompletedPayload) Kind() Kind { return KindAgentTurnCompleted }

// AgentTurnInterruptedPayload closes a turn early.
//
// PartialResponse is nil unless at least one TextDelta had been emitted
// for the turn being interrupted (invariant 6 / testable property 6).
// InterruptedByEventID is set only when the interruption was caused by a
// new triggering event (reason user_new_message).
type AgentTurnInterruptedPayload struct {
	TurnNumber           int
	Reason               InterruptReason
	PartialResponse      *string
	InterruptedByEventID string
}

// Kind implements Payload.
func (AgentTurnInterruptedPayload) Kind() Kind { return KindAgentTurnInterrupted }

// AgentTurnFailedPayload closes a turn with an executor failure.
type AgentTurnFailedPayload struct {
	TurnNumber int
	Error      string
}

// Kind implements Payload.
func (AgentTurnFailedPayload) Kind() Kind { return KindAgentTurnFailed }

// clonePayload returns a value copy of p. Payloads are plain value types
// (the only reference field, UserMessagePayload.Images, is replaced with
// a fresh slice) so a shallow copy per variant is sufficient.
func clonePayload(p Payload) Payload {
	switch v := p.(type) {
	case UserMessagePayload:
		images := make([]string, len(v.Images))
		copy(images, v.Images)
		v.Images = images
		return v
	default:
		return p
	}
}
