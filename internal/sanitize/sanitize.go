// Package sanitize screens untrusted chat text before it reaches the parser.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Delimiters are the formatting characters whose repetition is capped.
const Delimiters = "|*_`~"

const markupChars = "<>{}[]\\"

var spoilerPattern = regexp.MustCompile(`\|\|.*?\|\|`)

type Limits struct {
	MaxLength    int
	MaxSegments  int
	RejectMarkup bool
}

func DefaultLimits() Limits {
	return Limits{MaxLength: 1000, MaxSegments: 100}
}

type Sanitizer struct {
	limits Limits
	logger *zap.Logger
}

func New(limits Limits, logger *zap.Logger) *Sanitizer {
	defaults := DefaultLimits()
	if limits.MaxLength <= 0 {
		limits.MaxLength = defaults.MaxLength
	}
	if limits.MaxSegments <= 0 {
		limits.MaxSegments = defaults.MaxSegments
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sanitizer{limits: limits, logger: logger}
}

// IsSuspect reports whether text must be rejected without parsing. It runs on
// the raw text, spoilers included.
func (s *Sanitizer) IsSuspect(text string) bool {
	reason := s.reason(text)
	if reason == "" {
		return false
	}
	s.logger.Warn("suspect input detected",
		zap.String("reason", reason),
		zap.Int("length", utf8.RuneCountInString(text)),
		zap.String("text", text),
	)
	return true
}

func (s *Sanitizer) reason(text string) string {
	if utf8.RuneCountInString(text) > s.limits.MaxLength {
		return "length"
	}
	for _, delim := range Delimiters {
		if strings.Count(text, string(delim))+1 > s.limits.MaxSegments {
			return "delimiter " + string(delim)
		}
	}
	if s.limits.RejectMarkup && strings.ContainsAny(text, markupChars) {
		return "markup"
	}
	return ""
}

// StripSpoilers removes every ||...|| span on a single line.
func StripSpoilers(text string) string {
	return spoilerPattern.ReplaceAllString(text, "")
}
