// internal/intent/parser_test.go
package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexblade/pagepilot/api/schemas"
)

func TestParse_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want schemas.Intent
		ok   bool
	}{
		{
			name: "scroll down",
			in:   "scroll down",
			want: schemas.Intent{Kind: schemas.IntentScroll, Direction: "down", Amount: 0.8},
			ok:   true,
		},
		{
			name: "scroll up mixed case with whitespace",
			in:   "  SCROLL Up  ",
			want: schemas.Intent{Kind: schemas.IntentScroll, Direction: "up", Amount: 0.8},
			ok:   true,
		},
		{
			name: "scroll down with trailing words",
			in:   "scroll down a bit",
			want: schemas.Intent{Kind: schemas.IntentScroll, Direction: "down", Amount: 0.8},
			ok:   true,
		},
		{
			name: "open full url",
			in:   "open https://news.ycombinator.com/item?id=1",
			want: schemas.Intent{Kind: schemas.IntentOpenURL, URL: "https://news.ycombinator.com/item?id=1"},
			ok:   true,
		},
		{
			name: "open without scheme becomes search",
			in:   "open the weather forecast",
			want: schemas.Intent{Kind: schemas.IntentSearchWeb, Query: "the weather forecast"},
			ok:   true,
		},
		{
			name: "search keyword",
			in:   "search cheap flights to Lisbon",
			want: schemas.Intent{Kind: schemas.IntentSearchWeb, Query: "cheap flights to Lisbon"},
			ok:   true,
		},
		{
			name: "summary word anywhere",
			in:   "give me a summary of this",
			want: schemas.Intent{Kind: schemas.IntentSummary},
			ok:   true,
		},
		{
			name: "tldr",
			in:   "tl;dr please",
			want: schemas.Intent{Kind: schemas.IntentSummary},
			ok:   true,
		},
		{
			name: "fill assignment",
			in:   "fill destination = Lisbon ",
			want: schemas.Intent{Kind: schemas.IntentFillField, Label: "destination", Value: "Lisbon"},
			ok:   true,
		},
		{
			name: "click label",
			in:   "click submit",
			want: schemas.Intent{Kind: schemas.IntentClickLabel, Label: "submit"},
			ok:   true,
		},
		{
			name: "no match",
			in:   "what is the meaning of life",
			ok:   false,
		},
		{
			name: "empty",
			in:   "   ",
			ok:   false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

// Scroll takes precedence even when later rule keywords appear in the text.
func TestParse_ScrollWinsOverSummary(t *testing.T) {
	t.Parallel()
	got, ok := Parse("scroll down to the summary")
	assert.True(t, ok)
	assert.Equal(t, schemas.IntentScroll, got.Kind)
	assert.Equal(t, "down", got.Direction)
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{"scroll down", "open https://a.b", "search x", "fill a=b", "click ok", ""} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		intent, ok := Parse(input)
		if !ok {
			return
		}
		switch intent.Kind {
		case schemas.IntentScroll:
			if intent.Direction != "up" && intent.Direction != "down" {
				t.Fatalf("scroll direction %q", intent.Direction)
			}
		case schemas.IntentOpenURL:
			if intent.URL == "" {
				t.Fatal("OPEN_URL without url")
			}
		case schemas.IntentSearchWeb, schemas.IntentSummary,
			schemas.IntentClickLabel, schemas.IntentFillField:
		default:
			t.Fatalf("unexpected kind %q", intent.Kind)
		}
	})
}
