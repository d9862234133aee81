package slack

import (
	"encoding/json"
	"testing"
)

func TestEligible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   MessageEvent
		want bool
	}{
		{
			name: "plain_message",
			ev:   MessageEvent{Type: "message", Text: "hi", TS: "1.0"},
			want: true,
		},
		{
			name: "app_mention",
			ev:   MessageEvent{Type: "app_mention", Text: "<@U1> hi", TS: "1.0"},
			want: true,
		},
		{
			name: "bot_id_set",
			ev:   MessageEvent{Type: "message", BotID: "B123", TS: "1.0"},
			want: false,
		},
		{
			name: "bot_profile_set",
			ev:   MessageEvent{Type: "message", BotProfile: json.RawMessage(`{"id":"B123"}`), TS: "1.0"},
			want: false,
		},
		{
			name: "edited_message",
			ev:   MessageEvent{Type: "message", Subtype: "message_changed", TS: "1.0"},
			want: false,
		},
		{
			name: "unsupported_type",
			ev:   MessageEvent{Type: "reaction_added", TS: "1.0"},
			want: false,
		},
		{
			name: "empty_type",
			ev:   MessageEvent{TS: "1.0"},
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Eligible(tt.ev); got != tt.want {
				t.Fatalf("Eligible(%+v) = %v, want %v", tt.ev, got, tt.want)
			}
		})
	}
}

func TestConversationID(t *testing.T) {
	t.Parallel()

	root := MessageEvent{Type: "message", Channel: "C1", TS: "1700000000.000100"}
	reply := MessageEvent{Type: "message", Channel: "C1", TS: "1700000000.000200", ThreadTS: "1700000000.000100"}

	if got := ConversationID(root); got != "C1:1700000000.000100" {
		t.Fatalf("root identity %q", got)
	}
	if got := ConversationID(reply); got != ConversationID(root) {
		t.Fatalf("reply identity %q does not match root %q", got, ConversationID(root))
	}

	// Root messages in different channels can carry equal ts values and
	// must still start distinct threads.
	otherRoot := MessageEvent{Type: "message", Channel: "C2", TS: "1700000000.000100"}
	if ConversationID(root) == ConversationID(otherRoot) {
		t.Fatal("distinct roots must resolve to distinct identities")
	}

	if got := ConversationID(MessageEvent{Type: "message", Channel: "C1"}); got != "" {
		t.Fatalf("missing ts should yield empty identity, got %q", got)
	}
}

func TestReplyThreadTS(t *testing.T) {
	t.Parallel()

	root := MessageEvent{Type: "message", TS: "2.0"}
	if got := ReplyThreadTS(root); got != "2.0" {
		t.Fatalf("first reply should thread under the root ts, got %q", got)
	}
	reply := MessageEvent{Type: "message", TS: "3.0", ThreadTS: "2.0"}
	if got := ReplyThreadTS(reply); got != "2.0" {
		t.Fatalf("reply should stay in the root thread, got %q", got)
	}
}
