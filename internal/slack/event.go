package slack

import (
	"encoding/json"
	"strings"
)

// EventEnvelope is the outer body Slack posts to the events endpoint.
type EventEnvelope struct {
	Type      string       `json:"type"`
	Challenge string       `json:"challenge,omitempty"`
	Event     MessageEvent `json:"event,omitempty"`
}

const (
	EnvelopeURLVerification = "url_verification"
	EnvelopeEventCallback   = "event_callback"
)

// MessageEvent is the inner message or app_mention event.
type MessageEvent struct {
	Type       string          `json:"type,omitempty"`
	Subtype    string          `json:"subtype,omitempty"`
	User       string          `json:"user,omitempty"`
	Text       string          `json:"text,omitempty"`
	Channel    string          `json:"channel,omitempty"`
	TS         string          `json:"ts,omitempty"`
	ThreadTS   string          `json:"thread_ts,omitempty"`
	BotID      string          `json:"bot_id,omitempty"`
	BotProfile json.RawMessage `json:"bot_profile,omitempty"`
}

// Eligible reports whether an event should produce a reply. Bot-authored
// events and edited messages are platform echoes, not user intent;
// replying to them would loop the bot against itself.
func Eligible(ev MessageEvent) bool {
	if len(ev.BotProfile) > 0 && string(ev.BotProfile) != "null" {
		return false
	}
	if strings.TrimSpace(ev.BotID) != "" {
		return false
	}
	if strings.TrimSpace(ev.Subtype) == "message_changed" {
		return false
	}
	switch strings.TrimSpace(ev.Type) {
	case "message", "app_mention":
		return true
	}
	return false
}

// ConversationID resolves the stable thread identity for an event:
// channel plus the thread-root timestamp (the message's own timestamp
// when it starts a thread). Timestamps are only unique within a channel,
// so the channel is part of the key.
func ConversationID(ev MessageEvent) string {
	ts := ReplyThreadTS(ev)
	if ts == "" {
		return ""
	}
	return strings.TrimSpace(ev.Channel) + ":" + ts
}

// ReplyThreadTS is the thread target for an outbound reply to ev: the
// thread-root timestamp when the message is a reply, else the message's
// own timestamp. A first reply to a root message establishes the thread
// for all subsequent turns.
func ReplyThreadTS(ev MessageEvent) string {
	if ts := strings.TrimSpace(ev.ThreadTS); ts != "" {
		return ts
	}
	return strings.TrimSpace(ev.TS)
}
