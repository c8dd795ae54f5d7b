package agent

import (
	"context"

	"github.com/kairoslabs/agentrt/reducer"
)

// TurnExecutor is the external language-model port (spec section 3: "the
// core depends on a TurnExecutor capability that, given a reduced context,
// yields a finite stream of events or fails"). Execute must respect ctx
// cancellation promptly: stop producing chunks and release any outbound
// connection.
type TurnExecutor interface {
	Execute(ctx context.Context, state reducer.State) <-chan TurnChunk
}

// TurnChunk is one item of a TurnExecutor's output stream. Exactly one of
// Delta, Assistant, or Err is set per item; Assistant and Err are terminal
// — no further chunk follows them on the channel.
type TurnChunk struct {
	Delta     string
	Assistant string
	Err       error

	isAssistant bool
}

// DeltaChunk constructs a non-terminal TextDelta chunk.
func DeltaChunk(delta string) TurnChunk {
	return TurnChunk{Delta: delta}
}

// AssistantChunk constructs the terminal, successful chunk of a turn.
func AssistantChunk(content string) TurnChunk {
	return TurnChunk{Assistant: content, isAssistant: true}
}

// ErrChunk constructs the terminal, failing chunk of a turn.
func ErrChunk(err error) TurnChunk {
	return TurnChunk{Err: err}
}

func (c TurnChunk) isTerminal() bool {
	return c.isAssistant || c.Err != nil
}
