package sanitize

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestSanitizer(limits Limits) *Sanitizer {
	return New(limits, zap.NewNop())
}

func TestLengthLimit(t *testing.T) {
	s := newTestSanitizer(DefaultLimits())
	if !s.IsSuspect(strings.Repeat("1", 1001)) {
		t.Fatalf("expected 1001 chars to be suspect")
	}
	if s.IsSuspect(strings.Repeat("1", 999)) {
		t.Fatalf("did not expect 999 plain chars to be suspect")
	}
	if s.IsSuspect(strings.Repeat("1", 1000)) {
		t.Fatalf("did not expect 1000 plain chars to be suspect")
	}
}

func TestLengthCountsRunes(t *testing.T) {
	s := newTestSanitizer(DefaultLimits())
	if s.IsSuspect(strings.Repeat("é", 600)) {
		t.Fatalf("600 runes must not be suspect even though they are 1200 bytes")
	}
}

func TestDelimiterLimit(t *testing.T) {
	s := newTestSanitizer(DefaultLimits())
	for _, delim := range Delimiters {
		if !s.IsSuspect(strings.Repeat(string(delim), 100)) {
			t.Fatalf("expected 100 %q to be suspect", delim)
		}
		if s.IsSuspect(strings.Repeat(string(delim), 99)) {
			t.Fatalf("did not expect 99 %q to be suspect", delim)
		}
	}
}

func TestSpoilerDoesNotHidePayload(t *testing.T) {
	s := newTestSanitizer(DefaultLimits())
	payload := "12 ||" + strings.Repeat("a", 1200) + "||"
	if !s.IsSuspect(payload) {
		t.Fatalf("expected long spoiler payload to be suspect")
	}
}

func TestRejectMarkupIsOptIn(t *testing.T) {
	text := "<@123> 12"
	if newTestSanitizer(DefaultLimits()).IsSuspect(text) {
		t.Fatalf("markup must be accepted by default")
	}
	limits := DefaultLimits()
	limits.RejectMarkup = true
	if !newTestSanitizer(limits).IsSuspect(text) {
		t.Fatalf("expected markup rejection when enabled")
	}
}

func TestStripSpoilers(t *testing.T) {
	cases := map[string]string{
		"||hidden|| 12":        " 12",
		"12||a|| ||b||":        "12 ",
		"12 ||unterminated":    "12 ||unterminated",
		"||line\nbreak|| 5":    "||line\nbreak|| 5",
		"no spoilers here, 42": "no spoilers here, 42",
	}
	for input, want := range cases {
		if got := StripSpoilers(input); got != want {
			t.Fatalf("strip %q: expected %q, got %q", input, want, got)
		}
	}
}
