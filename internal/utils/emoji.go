package utils

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

const keycapMark = '⃣'

var customEmojiPattern = regexp.MustCompile(`^<(a?):([A-Za-z0-9_]{2,32}):(\d{15,21})>$`)

// CustomEmoji parses a guild emoji tag such as <:name:id> or <a:name:id>.
func CustomEmoji(tag string) (name, id string, ok bool) {
	m := customEmojiPattern.FindStringSubmatch(strings.TrimSpace(tag))
	if m == nil {
		return "", "", false
	}
	return m[2], m[3], true
}

// IsUnicodeEmoji reports whether s is exactly one emoji grapheme.
func IsUnicodeEmoji(s string) bool {
	if s == "" || uniseg.GraphemeClusterCount(s) != 1 {
		return false
	}
	for _, r := range s {
		if unicode.Is(unicode.So, r) || r == keycapMark {
			return true
		}
	}
	return false
}

// ReactionID converts an emoji as stored in a guild record to the form the
// reaction endpoint expects.
func ReactionID(emoji string) string {
	emoji = strings.TrimSpace(emoji)
	if name, id, ok := CustomEmoji(emoji); ok {
		return name + ":" + id
	}
	return emoji
}
