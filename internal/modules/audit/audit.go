package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

const (
	EventAccepted  = "count_accepted"
	EventRejected  = "count_rejected"
	EventRestored  = "count_restored"
	EventTolerated = "edit_tolerated"
	EventLost      = "count_lost"
	EventPenalty   = "penalty_applied"
	EventSetup     = "guild_setup"
)

type Entry struct {
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

// Sink receives every entry after it is logged.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

type Logger struct {
	logger *zap.Logger
	sinks  []Sink
	notify func(context.Context, Entry)
	now    func() time.Time
}

func NewLogger(logger *zap.Logger, sinks ...Sink) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger, sinks: sinks, now: time.Now}
}

// SetNotifier installs a callback for WARN and CRIT entries.
func (l *Logger) SetNotifier(notify func(context.Context, Entry)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	if l == nil {
		return
	}
	entry := Entry{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	for _, sink := range l.sinks {
		sink.Record(ctx, entry)
	}
	if l.notify != nil && level != LevelInfo {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
