package llm

import (
	"context"
	"time"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID               string         `json:"id,omitempty"`
	Type             string         `json:"type,omitempty"`
	Name             string         `json:"name"`
	Arguments        map[string]any `json:"arguments,omitempty"`
	RawArguments     string         `json:"raw_arguments,omitempty"`
	ThoughtSignature string         `json:"thought_signature,omitempty"`
}

// Tool is a provider-facing tool declaration: the name, a short
// description, and a JSON Schema for the parameters object.
type Tool struct {
	Name           string
	Description    string
	ParametersJSON string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Cost         float64
}

type Result struct {
	Text      string
	ToolCalls []ToolCall
	JSON      any
	Usage     Usage
	Duration  time.Duration
}

type Request struct {
	Model      string
	Messages   []Message
	Tools      []Tool
	ForceJSON  bool
	Parameters map[string]any
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
