package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quailyquaily/kbmorph/llm"
	"github.com/quailyquaily/kbmorph/tools"
)

const systemPrompt = `You are a Slack support assistant. You help users with their questions and issues. You have access to tools that retrieve information from the knowledge base.
Keep your responses concise and to the point.`

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithSystemPrompt(s string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(s) != "" {
			e.system = s
		}
	}
}

type Config struct {
	Model    string
	MaxSteps int
}

// Result is the outcome of one Generate invocation. Produced holds every
// new turn created during the invocation, in order: tool-call assistant
// turns, tool results, and the final assistant turn. Callers append all
// of Produced to their transcript so later invocations can replay the
// full tool history.
type Result struct {
	FinalText string
	Produced  []llm.Message
	Usage     llm.Usage
}

type Engine struct {
	client   llm.Client
	registry *tools.Registry
	config   Config
	system   string
	log      *slog.Logger
}

func New(client llm.Client, registry *tools.Registry, cfg Config, opts ...Option) *Engine {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 2
	}
	e := &Engine{
		client:   client,
		registry: registry,
		config:   cfg,
		system:   systemPrompt,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate runs up to MaxSteps chat rounds over the transcript. A round
// that requests tools has its calls executed and the results fed into the
// next round; a round that produces plain text ends the run. When the
// step budget runs out, the last round's text (possibly empty) is the
// final answer and any tool calls it requested are not executed.
func (e *Engine) Generate(ctx context.Context, transcript []llm.Message) (Result, error) {
	msgs := make([]llm.Message, 0, len(transcript)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: e.system})
	msgs = append(msgs, transcript...)

	decls := e.registry.Declarations()

	var produced []llm.Message
	var usage llm.Usage

	for step := 0; step < e.config.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("context cancelled at step %d: %w", step, err)
		}

		start := time.Now()
		e.log.Debug("llm_call_start", "step", step, "messages", len(msgs))
		result, err := e.client.Chat(ctx, llm.Request{
			Model:    e.config.Model,
			Messages: msgs,
			Tools:    decls,
		})
		if err != nil {
			e.log.Error("llm_call_error", "step", step, "error", err.Error())
			return Result{}, fmt.Errorf("llm call failed at step %d: %w", step, err)
		}
		usage.InputTokens += result.Usage.InputTokens
		usage.OutputTokens += result.Usage.OutputTokens
		usage.TotalTokens += result.Usage.TotalTokens
		e.log.Debug("llm_call_done",
			"step", step,
			"duration_ms", time.Since(start).Milliseconds(),
			"tool_calls", len(result.ToolCalls),
		)

		lastRound := step == e.config.MaxSteps-1
		if len(result.ToolCalls) == 0 || lastRound {
			final := llm.Message{Role: "assistant", Content: result.Text}
			produced = append(produced, final)
			return Result{FinalText: result.Text, Produced: produced, Usage: usage}, nil
		}

		assistant := llm.Message{
			Role:      "assistant",
			Content:   result.Text,
			ToolCalls: result.ToolCalls,
		}
		msgs = append(msgs, assistant)
		produced = append(produced, assistant)

		for _, call := range result.ToolCalls {
			observation := e.executeTool(ctx, step, call)
			toolMsg := llm.Message{
				Role:       "tool",
				Content:    observation,
				ToolCallID: call.ID,
			}
			msgs = append(msgs, toolMsg)
			produced = append(produced, toolMsg)
		}
	}

	// Unreachable for MaxSteps >= 1; the last round returns above.
	return Result{Produced: produced, Usage: usage}, nil
}

// executeTool never fails the round: a missing tool or a tool error is
// reported back to the model as the observation and generation proceeds.
func (e *Engine) executeTool(ctx context.Context, step int, call llm.ToolCall) string {
	tool, ok := e.registry.Get(call.Name)
	if !ok {
		e.log.Warn("tool_unknown", "step", step, "tool", call.Name)
		return fmt.Sprintf("error: unknown tool %q", call.Name)
	}
	start := time.Now()
	e.log.Info("tool_call", "step", step, "tool", call.Name)
	out, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		e.log.Warn("tool_error", "step", step, "tool", call.Name, "error", err.Error())
		return "error: " + err.Error()
	}
	e.log.Debug("tool_done", "step", step, "tool", call.Name, "duration_ms", time.Since(start).Milliseconds())
	return out
}
