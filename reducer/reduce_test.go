package reducer

import (
	"testing"

	"github.com/kairoslabs/agentrt/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(id string, p events.Payload) *events.Event {
	return &events.Event{ID: id, Payload: p}
}

func TestReduce_ProjectsMessagesInOrder(t *testing.T) {
	in := []*events.Event{
		ev("evt-1", events.SystemPromptPayload{Content: "be helpful"}),
		ev("evt-2", events.UserMessagePayload{Content: "hi", Images: []string{"a"}}),
		ev("evt-3", events.AssistantMessagePayload{Content: "hello"}),
	}

	state, err := Reduce(State{}, in)
	require.NoError(t, err)

	require.Len(t, state.Messages, 3)
	assert.Equal(t, Message{Role: RoleSystem, Content: "be helpful"}, state.Messages[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "hi", Images: []string{"a"}}, state.Messages[1])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "hello"}, state.Messages[2])
	assert.Equal(t, 3, state.NextEventNumber)
}

func TestReduce_ConsecutiveSameRoleMessagesAreNotMerged(t *testing.T) {
	in := []*events.Event{
		ev("evt-1", events.UserMessagePayload{Content: "first"}),
		ev("evt-2", events.UserMessagePayload{Content: "second"}),
	}

	state, err := Reduce(State{}, in)
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "first", state.Messages[0].Content)
	assert.Equal(t, "second", state.Messages[1].Content)
}

func TestReduce_SetLlmConfig_LatestWins(t *testing.T) {
	in := []*events.Event{
		ev("evt-1", events.SetLlmConfigPayload{Model: "gpt-4"}),
		ev("evt-2", events.SetLlmConfigPayload{Model: "gpt-5"}),
	}

	state, err := Reduce(State{}, in)
	require.NoError(t, err)
	require.NotNil(t, state.LLMConfig)
	assert.Equal(t, "gpt-5", state.LLMConfig.Model)
}

func TestReduce_TurnLifecycle_OpensAndCloses(t *testing.T) {
	in := []*events.Event{
		ev("evt-1", events.AgentTurnStartedPayload{TurnNumber: 0}),
	}
	state, err := Reduce(State{}, in)
	require.NoError(t, err)
	assert.True(t, state.IsTurnInProgress())
	assert.Equal(t, "evt-1", state.AgentTurnStartedAtEventID)
	assert.Equal(t, 0, state.CurrentTurnNumber)

	state, err = Reduce(state, []*events.Event{
		ev("evt-2", events.AgentTurnCompletedPayload{TurnNumber: 0, DurationMs: 10}),
	})
	require.NoError(t, err)
	assert.False(t, state.IsTurnInProgress())
	assert.Equal(t, 1, state.CurrentTurnNumber)
}

func TestReduce_TurnFailedClearsInProgressAndIncrementsCount(t *testing.T) {
	state, err := Reduce(State{}, []*events.Event{
		ev("evt-1", events.AgentTurnStartedPayload{TurnNumber: 0}),
		ev("evt-2", events.AgentTurnFailedPayload{TurnNumber: 0, Error: "boom"}),
	})
	require.NoError(t, err)
	assert.False(t, state.IsTurnInProgress())
	assert.Equal(t, 1, state.CurrentTurnNumber)
}

func TestReduce_TurnInterrupted_ClearsButDoesNotIncrementCount(t *testing.T) {
	partial := "partial"
	state, err := Reduce(State{}, []*events.Event{
		ev("evt-1", events.AgentTurnStartedPayload{TurnNumber: 0}),
		ev("evt-2", events.AgentTurnInterruptedPayload{
			TurnNumber:      0,
			Reason:          events.ReasonUserNewMessage,
			PartialResponse: &partial,
		}),
	})
	require.NoError(t, err)
	assert.False(t, state.IsTurnInProgress())
	assert.Equal(t, 0, state.CurrentTurnNumber, "interruption must not count as a completed/failed turn")
}

func TestReduce_TextDeltaAndSessionBookends_DoNotAffectMessagesOrConfig(t *testing.T) {
	state, err := Reduce(State{}, []*events.Event{
		ev("evt-1", events.SessionStartedPayload{}),
		ev("evt-2", events.TextDeltaPayload{Delta: "chunk"}),
		ev("evt-3", events.SessionEndedPayload{}),
	})
	require.NoError(t, err)
	assert.Empty(t, state.Messages)
	assert.Nil(t, state.LLMConfig)
	assert.Equal(t, 3, state.NextEventNumber, "every variant still increments nextEventNumber")
}

func TestReduce_UnknownTag_ReturnsReducerError(t *testing.T) {
	bad := &events.Event{ID: "evt-1"} // nil Payload -> Kind() == ""
	_, err := Reduce(State{}, []*events.Event{bad})
	require.Error(t, err)

	var reducerErr *Error
	require.ErrorAs(t, err, &reducerErr)
	assert.Equal(t, "", reducerErr.EventTag)
}

// TestReduce_Associative proves property 4 from the spec's testable
// properties: reducing a batch in one call is equivalent to reducing it
// split across several calls in any batching.
func TestReduce_Associative(t *testing.T) {
	all := []*events.Event{
		ev("evt-1", events.SystemPromptPayload{Content: "sys"}),
		ev("evt-2", events.UserMessagePayload{Content: "hi"}),
		ev("evt-3", events.AgentTurnStartedPayload{TurnNumber: 0}),
		ev("evt-4", events.TextDeltaPayload{Delta: "h"}),
		ev("evt-5", events.AssistantMessagePayload{Content: "hello"}),
		ev("evt-6", events.AgentTurnCompletedPayload{TurnNumber: 0, DurationMs: 5}),
	}

	whole, err := Reduce(State{}, all)
	require.NoError(t, err)

	batched := State{}
	for _, splitAt := range [][]int{{1, 3, 2}, {2, 2, 2}, {6}, {1, 1, 1, 1, 1, 1}} {
		state := State{}
		idx := 0
		for _, n := range splitAt {
			var err error
			state, err = Reduce(state, all[idx:idx+n])
			require.NoError(t, err)
			idx += n
		}
		batched = state
		assert.Equal(t, whole, batched)
	}
}

func TestReduce_DoesNotMutateInputState(t *testing.T) {
	original := State{Messages: []Message{{Role: RoleSystem, Content: "sys"}}}
	_, err := Reduce(original, []*events.Event{
		ev("evt-1", events.UserMessagePayload{Content: "hi"}),
	})
	require.NoError(t, err)
	assert.Len(t, original.Messages, 1, "Reduce must not mutate the caller's state in place")
}
