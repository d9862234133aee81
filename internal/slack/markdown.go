package slack

import (
	"regexp"
	"strings"
)

// FallbackReply is sent instead of an empty message when generation
// produced no text.
const FallbackReply = "I'm sorry, I couldn't generate a response."

var inlineLinkPattern = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)

// FormatText translates inline markdown into Slack mrkdwn: [label](url)
// becomes <url|label> and ** pairs become *. Conversion is greedy
// left-to-right; nested brackets are not supported and may not round-trip.
// Blank input yields FallbackReply so delivery never sends an empty
// message.
func FormatText(text string) string {
	if strings.TrimSpace(text) == "" {
		return FallbackReply
	}
	out := inlineLinkPattern.ReplaceAllString(text, "<$2|$1>")
	return strings.ReplaceAll(out, "**", "*")
}
