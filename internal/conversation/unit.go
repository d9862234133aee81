package conversation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/quailyquaily/kbmorph/agent"
	"github.com/quailyquaily/kbmorph/internal/slack"
	"github.com/quailyquaily/kbmorph/llm"
)

// ClarificationReply is sent when an eligible event carries no usable
// text; the transcript is left untouched and no generation happens.
const ClarificationReply = "I couldn't understand that message. Could you please rephrase?"

// DeliverFunc posts a reply into a channel, threaded under threadTS.
type DeliverFunc func(ctx context.Context, channelID, text, threadTS string) error

// Generator produces a reply from a transcript. *agent.Engine is the
// production implementation.
type Generator interface {
	Generate(ctx context.Context, transcript []llm.Message) (agent.Result, error)
}

// Unit owns one conversation's transcript and reply flow. It is driven by
// a single worker goroutine, so transcript access needs no locking.
type Unit struct {
	id         string
	transcript Transcript
	engine     Generator
	deliver    DeliverFunc
	log        *slog.Logger
}

func NewUnit(id string, engine Generator, deliver DeliverFunc, log *slog.Logger) *Unit {
	if log == nil {
		log = slog.Default()
	}
	return &Unit{
		id:      id,
		engine:  engine,
		deliver: deliver,
		log:     log.With("conversation_id", id),
	}
}

// Handle processes one inbound event end to end: user-turn append,
// generation, produced-turn append, then delivery, strictly in that
// order. Every failure is logged here and dropped; a missing reply is
// preferred to a duplicate one.
func (u *Unit) Handle(ctx context.Context, ev slack.MessageEvent) {
	// Same filter as the dispatcher; this unit can be reached through
	// paths that bypass it.
	if !slack.Eligible(ev) {
		u.log.Debug("skip_ineligible_event", "event_type", ev.Type, "subtype", ev.Subtype)
		return
	}

	threadTS := slack.ReplyThreadTS(ev)

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		u.log.Info("empty_text", "channel", ev.Channel)
		if err := u.deliver(ctx, ev.Channel, ClarificationReply, threadTS); err != nil {
			u.log.Warn("delivery_error", "channel", ev.Channel, "error", err.Error())
		}
		return
	}

	u.transcript.Append(NewUserTurn(text))

	result, err := u.engine.Generate(ctx, u.transcript.Messages())
	if err != nil {
		u.log.Error("generate_error", "channel", ev.Channel, "error", err.Error())
		return
	}
	u.transcript.AppendMessages(result.Produced...)

	out := slack.FormatText(result.FinalText)
	if err := u.deliver(ctx, ev.Channel, out, threadTS); err != nil {
		u.log.Warn("delivery_error", "channel", ev.Channel, "error", err.Error())
		return
	}
	u.log.Info("replied", "channel", ev.Channel, "thread_ts", threadTS, "turns", u.transcript.Len())
}

// TranscriptLen is exposed for tests and diagnostics.
func (u *Unit) TranscriptLen() int { return u.transcript.Len() }
