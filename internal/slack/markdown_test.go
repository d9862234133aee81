package slack

import "testing"

func TestFormatText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "link_and_bold",
			in:   "See [docs](http://example.com/x) for **details**",
			want: "See <http://example.com/x|docs> for *details*",
		},
		{
			name: "no_markup_unchanged",
			in:   "plain text stays as it is",
			want: "plain text stays as it is",
		},
		{
			name: "multiple_links",
			in:   "[a](http://a) and [b](http://b)",
			want: "<http://a|a> and <http://b|b>",
		},
		{
			name: "empty_yields_fallback",
			in:   "",
			want: FallbackReply,
		},
		{
			name: "whitespace_yields_fallback",
			in:   "   \n",
			want: FallbackReply,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatText(tt.in); got != tt.want {
				t.Fatalf("FormatText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
