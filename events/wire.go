package events

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// wireTag returns the "_tag" discriminator for a payload, e.g.
// "UserMessageEvent" for UserMessagePayload. Spec §6: "<VariantName>Event".
func wireTag(k Kind) string {
	return string(k) + "Event"
}

func kindFromTag(tag string) (Kind, error) {
	for _, k := range []Kind{
		KindSystemPrompt, KindUserMessage, KindAssistantMessage, KindTextDelta,
		KindSetLlmConfig, KindSessionStarted, KindSessionEnded,
		KindAgentTurnStarted, KindAgentTurnCompleted, KindAgentTurnInterrupted,
		KindAgentTurnFailed,
	} {
		if wireTag(k) == tag {
			return k, nil
		}
	}
	return "", fmt.Errorf("events: unknown wire tag %q", tag)
}

// wireEvent is the flat JSON representation used for both the HTTP/SSE
// surface (spec.md §6) and file-based persistence. ParentEventID is
// omitted entirely (never emitted as a wrapped null) when the event is
// the genesis event of an agent's lifetime.
type wireEvent struct {
	Tag               string    `json:"_tag" yaml:"_tag"`
	ID                string    `json:"id" yaml:"id"`
	Timestamp         time.Time `json:"timestamp" yaml:"timestamp"`
	AgentName         string    `json:"agentName" yaml:"agentName"`
	ParentEventID     string    `json:"parentEventId,omitempty" yaml:"parentEventId,omitempty"`
	TriggersAgentTurn bool      `json:"triggersAgentTurn" yaml:"triggersAgentTurn"`

	Content              string   `json:"content,omitempty" yaml:"content,omitempty"`
	Images               []string `json:"images,omitempty" yaml:"images,omitempty"`
	Delta                string   `json:"delta,omitempty" yaml:"delta,omitempty"`
	APIFormat            string   `json:"apiFormat,omitempty" yaml:"apiFormat,omitempty"`
	Model                string   `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL              string   `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	APIKeyEnvVar         string   `json:"apiKeyEnvVar,omitempty" yaml:"apiKeyEnvVar,omitempty"`
	TurnNumber           *int     `json:"turnNumber,omitempty" yaml:"turnNumber,omitempty"`
	DurationMs           *int64   `json:"durationMs,omitempty" yaml:"durationMs,omitempty"`
	Reason               string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	PartialResponse      *string  `json:"partialResponse,omitempty" yaml:"partialResponse,omitempty"`
	InterruptedByEventID string   `json:"interruptedByEventId,omitempty" yaml:"interruptedByEventId,omitempty"`
	Error                string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// toWire flattens e into its tagged-union wire shape, shared by the JSON
// and YAML codecs so both round-trip the identical representation.
func (e Event) toWire() (wireEvent, error) {
	w := wireEvent{
		Tag:               wireTag(e.Kind()),
		ID:                e.ID,
		Timestamp:         e.Timestamp,
		AgentName:         e.AgentName,
		ParentEventID:     e.ParentEventID,
		TriggersAgentTurn: e.TriggersAgentTurn,
	}

	switch p := e.Payload.(type) {
	case SystemPromptPayload:
		w.Content = p.Content
	case UserMessagePayload:
		w.Content = p.Content
		w.Images = p.Images
	case AssistantMessagePayload:
		w.Content = p.Content
	case TextDeltaPayload:
		w.Delta = p.Delta
	case SetLlmConfigPayload:
		w.APIFormat = p.APIFormat
		w.Model = p.Model
		w.BaseURL = p.BaseURL
		w.APIKeyEnvVar = p.APIKeyEnvVar
	case SessionStartedPayload, SessionEndedPayload:
		// no fields
	case AgentTurnStartedPayload:
		w.TurnNumber = &p.TurnNumber
	case AgentTurnCompletedPayload:
		w.TurnNumber = &p.TurnNumber
		w.DurationMs = &p.DurationMs
	case AgentTurnInterruptedPayload:
		w.TurnNumber = &p.TurnNumber
		w.Reason = string(p.Reason)
		w.PartialResponse = p.PartialResponse
		w.InterruptedByEventID = p.InterruptedByEventID
	case AgentTurnFailedPayload:
		w.TurnNumber = &p.TurnNumber
		w.Error = p.Error
	default:
		return wireEvent{}, fmt.Errorf("events: marshal: unsupported payload %T", e.Payload)
	}

	return w, nil
}

// fromWire restores an Event from its flattened wire shape, the inverse of
// toWire, shared by the JSON and YAML codecs.
func (e *Event) fromWire(w wireEvent) error {
	kind, err := kindFromTag(w.Tag)
	if err != nil {
		return err
	}

	e.ID = w.ID
	e.Timestamp = w.Timestamp
	e.AgentName = w.AgentName
	e.ParentEventID = w.ParentEventID
	e.TriggersAgentTurn = w.TriggersAgentTurn

	switch kind {
	case KindSystemPrompt:
		e.Payload = SystemPromptPayload{Content: w.Content}
	case KindUserMessage:
		e.Payload = UserMessagePayload{Content: w.Content, Images: w.Images}
	case KindAssistantMessage:
		e.Payload = AssistantMessagePayload{Content: w.Content}
	case KindTextDelta:
		e.Payload = TextDeltaPayload{Delta: w.Delta}
	case KindSetLlmConfig:
		e.Payload = SetLlmConfigPayload{
			APIFormat: w.APIFormat, Model: w.Model, BaseURL: w.BaseURL, APIKeyEnvVar: w.APIKeyEnvVar,
		}
	case KindSessionStarted:
		e.Payload = SessionStartedPayload{}
	case KindSessionEnded:
		e.Payload = SessionEndedPayload{}
	case KindAgentTurnStarted:
		e.Payload = AgentTurnStartedPayload{TurnNumber: intOrZero(w.TurnNumber)}
	case KindAgentTurnCompleted:
		e.Payload = AgentTurnCompletedPayload{
			TurnNumber: intOrZero(w.TurnNumber), DurationMs: int64OrZero(w.DurationMs),
		}
	case KindAgentTurnInterrupted:
		e.Payload = AgentTurnInterruptedPayload{
			TurnNumber:           intOrZero(w.TurnNumber),
			Reason:               InterruptReason(w.Reason),
			PartialResponse:      w.PartialResponse,
			InterruptedByEventID: w.InterruptedByEventID,
		}
	case KindAgentTurnFailed:
		e.Payload = AgentTurnFailedPayload{TurnNumber: intOrZero(w.TurnNumber), Error: w.Error}
	default:
		return fmt.Errorf("events: unmarshal: unhandled kind %q", kind)
	}

	return nil
}

// MarshalJSON implements the spec's tagged-union wire format.
func (e Event) MarshalJSON() ([]byte, error) {
	w, err := e.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements the spec's tagged-union wire format.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return e.fromWire(w)
}

// MarshalYAML implements the same tagged-union wire format as MarshalJSON,
// so YAMLFileStore persists and round-trips events identically to the
// JSON-backed stores instead of losing the _tag discriminator.
func (e Event) MarshalYAML() (interface{}, error) {
	return e.toWire()
}

// UnmarshalYAML implements the same tagged-union wire format as
// UnmarshalJSON. Payload is a non-empty interface (Kind() Kind), so yaml.v3
// cannot decode a mapping node into it directly; decoding into the flat
// wireEvent first and restoring via fromWire avoids that type error.
func (e *Event) UnmarshalYAML(value *yaml.Node) error {
	var w wireEvent
	if err := value.Decode(&w); err != nil {
		return err
	}
	return e.fromWire(w)
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func int64OrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
