package conversation

import (
	"github.com/google/uuid"
	"github.com/quailyquaily/kbmorph/llm"
)

// Turn is one immutable entry in a transcript. Role is user, assistant,
// or tool; tool-call turns carry the calls, tool-result turns carry the
// id of the call they answer.
type Turn struct {
	ID         string
	Role       string
	Content    string
	ToolCalls  []llm.ToolCall
	ToolCallID string
}

func NewUserTurn(text string) Turn {
	return Turn{
		ID:      uuid.NewString(),
		Role:    "user",
		Content: text,
	}
}

func TurnFromMessage(m llm.Message) Turn {
	return Turn{
		ID:         uuid.NewString(),
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
	}
}

// Transcript is the append-only, order-preserving turn history of one
// conversation. It is exclusively owned by that conversation's worker
// goroutine; ordering is insertion order and is the literal model input.
type Transcript struct {
	turns []Turn
}

func (t *Transcript) Append(turns ...Turn) {
	t.turns = append(t.turns, turns...)
}

func (t *Transcript) AppendMessages(msgs ...llm.Message) {
	for _, m := range msgs {
		t.turns = append(t.turns, TurnFromMessage(m))
	}
}

func (t *Transcript) Len() int { return len(t.turns) }

// Messages renders the transcript in the shape the generation gateway
// consumes.
func (t *Transcript) Messages() []llm.Message {
	out := make([]llm.Message, 0, len(t.turns))
	for _, turn := range t.turns {
		out = append(out, llm.Message{
			Role:       turn.Role,
			Content:    turn.Content,
			ToolCalls:  turn.ToolCalls,
			ToolCallID: turn.ToolCallID,
		})
	}
	return out
}

// Turns returns a copy; the transcript itself is never handed out.
func (t *Transcript) Turns() []Turn {
	return append([]Turn(nil), t.turns...)
}
