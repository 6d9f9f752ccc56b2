package utils

import "testing"

func TestIsUnicodeEmoji(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"✅", true},
		{"👍🏽", true},
		{"👨‍👩‍👧", true},
		{"🇫🇷", true},
		{"1️⃣", true},
		{"", false},
		{"a", false},
		{"✅✅", false},
		{"no", false},
		{"<:count:1>", false},
	}
	for _, tc := range cases {
		if got := IsUnicodeEmoji(tc.input); got != tc.want {
			t.Fatalf("IsUnicodeEmoji(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestCustomEmoji(t *testing.T) {
	name, id, ok := CustomEmoji("<a:party_blob:123456789012345678>")
	if !ok || name != "party_blob" || id != "123456789012345678" {
		t.Fatalf("unexpected parse %q %q %v", name, id, ok)
	}
	if _, _, ok := CustomEmoji("<:x:12>"); ok {
		t.Fatalf("expected short tag to be rejected")
	}
}

func TestReactionID(t *testing.T) {
	if got := ReactionID("<:count:123456789012345678>"); got != "count:123456789012345678" {
		t.Fatalf("unexpected reaction id %q", got)
	}
	if got := ReactionID(" ✅ "); got != "✅" {
		t.Fatalf("unexpected reaction id %q", got)
	}
}
