package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// NoPoster is the last poster written by setup before anyone counted.
	NoPoster = "0"
	// NoReaction disables the success reaction.
	NoReaction   = "no"
	DefaultEmoji = "✅"

	recordFields = 6
)

var (
	ErrNotFound  = errors.New("guild record not found")
	ErrMalformed = errors.New("guild record malformed")
)

type GuildConfig struct {
	GuildID        string
	CurrentNumber  int64
	LastPosterID   string
	ChannelID      string
	TimeoutMinutes int
	TimeoutRoleID  string
	ReactionEmoji  string
}

func (c GuildConfig) NextNumber() int64 {
	return c.CurrentNumber + 1
}

func (c GuildConfig) ReactionEnabled() bool {
	return c.ReactionEmoji != "" && !strings.EqualFold(c.ReactionEmoji, NoReaction)
}

// Backend persists one GuildConfig per guild.
type Backend interface {
	Load(ctx context.Context, guildID string) (GuildConfig, error)
	Save(ctx context.Context, cfg GuildConfig) error
	UpdateProgress(ctx context.Context, guildID string, number int64, posterID string) error
	Close() error
}

// EncodeRecord renders cfg in the six-line text format.
func EncodeRecord(cfg GuildConfig) string {
	poster := cfg.LastPosterID
	if poster == "" {
		poster = NoPoster
	}
	return strings.Join([]string{
		strconv.FormatInt(cfg.CurrentNumber, 10),
		poster,
		cfg.ChannelID,
		strconv.Itoa(cfg.TimeoutMinutes),
		cfg.TimeoutRoleID,
		strings.TrimSpace(cfg.ReactionEmoji),
	}, "\n")
}

// DecodeRecord parses the six-line text format. Lines beyond the sixth are ignored.
func DecodeRecord(guildID, data string) (GuildConfig, error) {
	return decodeLines(guildID, strings.Split(data, "\n"))
}

// AdvanceRecord rewrites the number and poster lines of data and keeps every
// other line byte for byte.
func AdvanceRecord(guildID, data string, number int64, posterID string) (string, error) {
	lines := strings.Split(data, "\n")
	if _, err := decodeLines(guildID, lines); err != nil {
		return "", err
	}
	lines[0] = strconv.FormatInt(number, 10)
	lines[1] = posterID
	return strings.Join(lines, "\n"), nil
}

func decodeLines(guildID string, lines []string) (GuildConfig, error) {
	if len(lines) < recordFields {
		return GuildConfig{}, fmt.Errorf("%w: %d lines", ErrMalformed, len(lines))
	}
	number, err := strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
	if err != nil || number < 0 {
		return GuildConfig{}, fmt.Errorf("%w: current number %q", ErrMalformed, lines[0])
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(lines[3]))
	if err != nil || minutes < 0 {
		return GuildConfig{}, fmt.Errorf("%w: timeout minutes %q", ErrMalformed, lines[3])
	}
	return normalize(GuildConfig{
		GuildID:        guildID,
		CurrentNumber:  number,
		LastPosterID:   strings.TrimSpace(lines[1]),
		ChannelID:      strings.TrimSpace(lines[2]),
		TimeoutMinutes: minutes,
		TimeoutRoleID:  strings.TrimSpace(lines[4]),
		ReactionEmoji:  strings.TrimSpace(lines[5]),
	}), nil
}

func normalize(cfg GuildConfig) GuildConfig {
	if cfg.LastPosterID == "" {
		cfg.LastPosterID = NoPoster
	}
	cfg.ReactionEmoji = strings.TrimSpace(cfg.ReactionEmoji)
	if cfg.ReactionEmoji == "" {
		cfg.ReactionEmoji = DefaultEmoji
	}
	return cfg
}
