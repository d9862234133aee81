package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/quailyquaily/kbmorph/llm"
	"github.com/quailyquaily/kbmorph/tools"
)

type scriptedClient struct {
	responses []llm.Result
	errs      []error
	requests  []llm.Request
}

func (c *scriptedClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return llm.Result{}, c.errs[i]
	}
	if i >= len(c.responses) {
		return llm.Result{}, fmt.Errorf("unexpected chat call %d", i)
	}
	return c.responses[i], nil
}

type recordingTool struct {
	name   string
	result string
	err    error
	calls  []map[string]any
}

func (t *recordingTool) Name() string            { return t.name }
func (t *recordingTool) Description() string     { return "test tool" }
func (t *recordingTool) ParameterSchema() string { return `{"type":"object"}` }
func (t *recordingTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	t.calls = append(t.calls, params)
	return t.result, t.err
}

func newTestEngine(client llm.Client, reg *tools.Registry, maxSteps int) *Engine {
	return New(client, reg, Config{Model: "test-model", MaxSteps: maxSteps})
}

func TestGenerateFinalOnFirstRound(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []llm.Result{{Text: "hello there"}}}
	e := newTestEngine(client, tools.NewRegistry(), 2)

	res, err := e.Generate(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalText != "hello there" {
		t.Fatalf("got final %q", res.FinalText)
	}
	if len(res.Produced) != 1 || res.Produced[0].Role != "assistant" {
		t.Fatalf("expected one assistant turn, got %+v", res.Produced)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected 1 chat call, got %d", len(client.requests))
	}
	if client.requests[0].Messages[0].Role != "system" {
		t.Fatalf("expected system message first, got %q", client.requests[0].Messages[0].Role)
	}
}

func TestGenerateToolRoundThenFinal(t *testing.T) {
	t.Parallel()

	tool := &recordingTool{name: "kb_search", result: `{"answer":"42"}`}
	reg := tools.NewRegistry()
	reg.Register(tool)

	client := &scriptedClient{responses: []llm.Result{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call_1",
			Name:      "kb_search",
			Arguments: map[string]any{"question": "meaning of life"},
		}}},
		{Text: "The answer is 42."},
	}}
	e := newTestEngine(client, reg, 2)

	res, err := e.Generate(context.Background(), []llm.Message{{Role: "user", Content: "what is the meaning of life?"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FinalText != "The answer is 42." {
		t.Fatalf("got final %q", res.FinalText)
	}

	// tool-call assistant turn, tool result, final assistant turn, in order
	if len(res.Produced) != 3 {
		t.Fatalf("expected 3 produced turns, got %d", len(res.Produced))
	}
	if res.Produced[0].Role != "assistant" || len(res.Produced[0].ToolCalls) != 1 {
		t.Fatalf("first produced turn should carry the tool call, got %+v", res.Produced[0])
	}
	if res.Produced[1].Role != "tool" || res.Produced[1].ToolCallID != "call_1" {
		t.Fatalf("second produced turn should be the tool result, got %+v", res.Produced[1])
	}
	if res.Produced[1].Content != `{"answer":"42"}` {
		t.Fatalf("tool result content %q", res.Produced[1].Content)
	}
	if res.Produced[2].Role != "assistant" || res.Produced[2].Content != "The answer is 42." {
		t.Fatalf("third produced turn should be the final text, got %+v", res.Produced[2])
	}

	if len(tool.calls) != 1 || tool.calls[0]["question"] != "meaning of life" {
		t.Fatalf("tool called with %+v", tool.calls)
	}

	// round 2 must see the tool history
	second := client.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Fatalf("round 2 should end with the tool result, got %+v", last)
	}
}

func TestGenerateStepBudgetExhausted(t *testing.T) {
	t.Parallel()

	tool := &recordingTool{name: "kb_search", result: "partial"}
	reg := tools.NewRegistry()
	reg.Register(tool)

	// The model keeps asking for tools; round 2's text must be treated as
	// final and its tool request must not execute.
	client := &scriptedClient{responses: []llm.Result{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "kb_search", Arguments: map[string]any{"question": "a"}}}},
		{Text: "incomplete answer", ToolCalls: []llm.ToolCall{{ID: "call_2", Name: "kb_search", Arguments: map[string]any{"question": "b"}}}},
		{Text: "never reached"},
	}}
	e := newTestEngine(client, reg, 2)

	res, err := e.Generate(context.Background(), []llm.Message{{Role: "user", Content: "q"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected exactly 2 chat rounds, got %d", len(client.requests))
	}
	if res.FinalText != "incomplete answer" {
		t.Fatalf("got final %q", res.FinalText)
	}
	if len(tool.calls) != 1 {
		t.Fatalf("round 2 tool call must not execute, got %d calls", len(tool.calls))
	}
	final := res.Produced[len(res.Produced)-1]
	if final.Role != "assistant" || len(final.ToolCalls) != 0 {
		t.Fatalf("final turn should be plain assistant text, got %+v", final)
	}
}

func TestGenerateToolErrorBecomesObservation(t *testing.T) {
	t.Parallel()

	tool := &recordingTool{name: "kb_search", err: fmt.Errorf("backend down")}
	reg := tools.NewRegistry()
	reg.Register(tool)

	client := &scriptedClient{responses: []llm.Result{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "kb_search", Arguments: map[string]any{"question": "a"}}}},
		{Text: "working from what I have"},
	}}
	e := newTestEngine(client, reg, 2)

	res, err := e.Generate(context.Background(), []llm.Message{{Role: "user", Content: "q"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Produced[1].Content != "error: backend down" {
		t.Fatalf("expected error observation, got %q", res.Produced[1].Content)
	}
	if res.FinalText != "working from what I have" {
		t.Fatalf("got final %q", res.FinalText)
	}
}

func TestGenerateUnknownToolObservation(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{responses: []llm.Result{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "nope"}}},
		{Text: "done"},
	}}
	e := newTestEngine(client, tools.NewRegistry(), 2)

	res, err := e.Generate(context.Background(), []llm.Message{{Role: "user", Content: "q"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Produced[1].Content != `error: unknown tool "nope"` {
		t.Fatalf("got observation %q", res.Produced[1].Content)
	}
}

func TestGenerateLLMError(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errs: []error{fmt.Errorf("boom")}}
	e := newTestEngine(client, tools.NewRegistry(), 2)

	if _, err := e.Generate(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}
