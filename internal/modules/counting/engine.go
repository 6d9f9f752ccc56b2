package counting

import (
	"context"
	"strconv"

	"counter-bot/internal/modules/audit"
	"counter-bot/internal/storage"

	"go.uber.org/zap"
)

// Message is the gateway-independent view of a chat message.
type Message struct {
	GuildID     string
	ChannelID   string
	ID          string
	AuthorID    string
	Bot         bool
	Content     string
	DisplayName string
	AvatarURL   string
}

type Decision int

const (
	Ignored Decision = iota
	Accepted
	Rejected
	Tolerated
	Restored
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Tolerated:
		return "tolerated"
	case Restored:
		return "restored"
	default:
		return "ignored"
	}
}

type Store interface {
	Get(ctx context.Context, guildID string) (storage.GuildConfig, bool)
	Advance(ctx context.Context, guildID string, number int64, posterID string) error
}

type Parser interface {
	Parse(ctx context.Context, guildID, text string) (int64, bool)
}

type Actions interface {
	DeleteMessage(ctx context.Context, channelID, messageID string)
	RestoreNumber(ctx context.Context, channelID, displayName, avatarURL string, number int64)
	React(ctx context.Context, channelID, messageID, emoji string)
}

type Penalizer interface {
	Timeout(ctx context.Context, guildID, userID string, minutes int, roleID string)
}

// Engine applies the counting rules to message events. It keeps no state
// between events beyond what the Store persists.
type Engine struct {
	store   Store
	parser  Parser
	actions Actions
	penalty Penalizer
	audit   *audit.Logger
	logger  *zap.Logger
}

func New(store Store, parser Parser, actions Actions, penalty Penalizer, auditLogger *audit.Logger, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:   store,
		parser:  parser,
		actions: actions,
		penalty: penalty,
		audit:   auditLogger,
		logger:  logger,
	}
}

// HandleCreate accepts msg when it carries the next number and its author
// did not post the previous one. Anything else is punished and deleted.
func (e *Engine) HandleCreate(ctx context.Context, msg Message) Decision {
	cfg, ok := e.config(ctx, msg)
	if !ok {
		return Ignored
	}

	expected := cfg.NextNumber()
	if msg.AuthorID != cfg.LastPosterID {
		if n, ok := e.parser.Parse(ctx, msg.GuildID, msg.Content); ok && n == expected {
			if cfg.ReactionEnabled() {
				e.actions.React(ctx, msg.ChannelID, msg.ID, cfg.ReactionEmoji)
			}
			if err := e.store.Advance(ctx, msg.GuildID, n, msg.AuthorID); err != nil {
				e.audit.Log(ctx, audit.LevelCrit, msg.GuildID, msg.AuthorID, audit.EventLost, strconv.FormatInt(n, 10)+": "+err.Error())
				return Ignored
			}
			e.audit.Log(ctx, audit.LevelInfo, msg.GuildID, msg.AuthorID, audit.EventAccepted, strconv.FormatInt(n, 10))
			return Accepted
		}
	}

	e.penalty.Timeout(ctx, msg.GuildID, msg.AuthorID, cfg.TimeoutMinutes, cfg.TimeoutRoleID)
	e.actions.DeleteMessage(ctx, msg.ChannelID, msg.ID)
	e.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.AuthorID, audit.EventRejected, "expected "+strconv.FormatInt(expected, 10))
	return Rejected
}

// HandleDelete restores the current number when its poster deletes it.
func (e *Engine) HandleDelete(ctx context.Context, msg Message) Decision {
	cfg, ok := e.config(ctx, msg)
	if !ok || msg.AuthorID != cfg.LastPosterID {
		return Ignored
	}
	if n, ok := e.parser.Parse(ctx, msg.GuildID, msg.Content); !ok || n != cfg.CurrentNumber {
		return Ignored
	}

	e.restore(ctx, cfg, msg, "deleted")
	return Restored
}

// HandleUpdate restores the current number when its poster edits it into
// something else. Edits that keep the value are tolerated.
func (e *Engine) HandleUpdate(ctx context.Context, before, after Message) Decision {
	cfg, ok := e.config(ctx, after)
	if !ok || after.AuthorID != cfg.LastPosterID || before.AuthorID != after.AuthorID {
		return Ignored
	}
	old, ok := e.parser.Parse(ctx, before.GuildID, before.Content)
	if !ok || old != cfg.CurrentNumber {
		return Ignored
	}
	if n, ok := e.parser.Parse(ctx, after.GuildID, after.Content); ok && n == old {
		e.audit.Log(ctx, audit.LevelInfo, after.GuildID, after.AuthorID, audit.EventTolerated, strconv.FormatInt(n, 10))
		return Tolerated
	}

	e.actions.DeleteMessage(ctx, after.ChannelID, after.ID)
	e.restore(ctx, cfg, after, "edited")
	return Restored
}

func (e *Engine) restore(ctx context.Context, cfg storage.GuildConfig, msg Message, reason string) {
	e.penalty.Timeout(ctx, msg.GuildID, msg.AuthorID, cfg.TimeoutMinutes, cfg.TimeoutRoleID)
	e.actions.RestoreNumber(ctx, msg.ChannelID, msg.DisplayName, msg.AvatarURL, cfg.CurrentNumber)
	e.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.AuthorID, audit.EventRestored, reason+" "+strconv.FormatInt(cfg.CurrentNumber, 10))
}

func (e *Engine) config(ctx context.Context, msg Message) (storage.GuildConfig, bool) {
	if msg.Bot || msg.GuildID == "" || msg.AuthorID == "" {
		return storage.GuildConfig{}, false
	}
	cfg, ok := e.store.Get(ctx, msg.GuildID)
	if !ok {
		return storage.GuildConfig{}, false
	}
	if msg.ChannelID != cfg.ChannelID {
		return storage.GuildConfig{}, false
	}
	return cfg, true
}
