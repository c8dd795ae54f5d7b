package reducer

import "github.com/kairoslabs/agentrt/events"

// Reduce folds newEvents into state left-to-right and returns the result.
// It never mutates state's backing arrays; the returned State shares no
// slice or pointer with the input.
//
// Reduce is associative in the weak sense spec'd for the agent log:
// reducing a slice in one call yields the same result as reducing it
// split across several calls, i.e.
//
//	Reduce(Reduce(s, a), b) == Reduce(s, append(a, b...))
func Reduce(state State, newEvents []*events.Event) (State, error) {
	next := state.Clone()
	for _, e := range newEvents {
		var err error
		next, err = reduceOne(next, e)
		if err != nil {
			return state, err
		}
	}
	return next, nil
}

func reduceOne(state State, e *events.Event) (State, error) {
	switch p := e.Payload.(type) {
	case events.SystemPromptPayload:
		state.Messages = append(state.Messages, Message{Role: RoleSystem, Content: p.Content})
	case events.UserMessagePayload:
		state.Messages = append(state.Messages, Message{Role: RoleUser, Content: p.Content, Images: p.Images})
	case events.AssistantMessagePayload:
		state.Messages = append(state.Messages, Message{Role: RoleAssistant, Content: p.Content})
	case events.SetLlmConfigPayload:
		cfg := p
		state.LLMConfig = &cfg
	case events.AgentTurnStartedPayload:
		state.AgentTurnStartedAtEventID = e.ID
	case events.AgentTurnCompletedPayload:
		state.AgentTurnStartedAtEventID = ""
		state.CurrentTurnNumber++
	case events.AgentTurnFailedPayload:
		state.AgentTurnStartedAtEventID = ""
		state.CurrentTurnNumber++
	case events.AgentTurnInterruptedPayload:
		state.AgentTurnStartedAtEventID = ""
	case events.TextDeltaPayload, events.SessionStartedPayload, events.SessionEndedPayload:
		// No effect on messages, config, or turn bookkeeping.
	default:
		return state, &Error{EventTag: string(e.Kind())}
	}

	state.NextEventNumber++
	return state, nil
}
