package bot

import (
	"context"

	"counter-bot/internal/analytics"
	"counter-bot/internal/config"
	"counter-bot/internal/modules/audit"
	"counter-bot/internal/modules/correction"
	"counter-bot/internal/modules/counting"
	"counter-bot/internal/modules/penalty"
	"counter-bot/internal/parser"
	"counter-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const presenceName = "numbers"

const (
	colorOK    = 0x2ECC71
	colorWarn  = 0xF1C40F
	colorError = 0xE74C3C
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	parser    *parser.Parser
	engine    *counting.Engine
	penalty   *penalty.Registry
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, textParser *parser.Parser, auditLogger *audit.Logger, analyticsSvc *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	// Deleted and edited messages are judged on their cached previous version.
	session.State.MaxMessageCount = cfg.MessageCacheSize

	registry := penalty.New(session, auditLogger, logger.Named("penalty"))
	actions := correction.New(session, logger.Named("correction"))

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		parser:    textParser,
		engine:    counting.New(store, textParser, actions, registry, auditLogger, logger.Named("counting")),
		penalty:   registry,
		audit:     auditLogger,
		analytics: analyticsSvc,
		session:   session,
	}

	if b.audit != nil && cfg.Audit.ChannelID != "" {
		b.audit.SetNotifier(b.notifyAudit)
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

// Close lifts every pending timeout before disconnecting.
func (b *Bot) Close(ctx context.Context) {
	b.penalty.Close(ctx)
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
	if err := session.UpdateWatchStatus(0, presenceName); err != nil {
		b.logger.Warn("presence update failed", zap.Error(err))
	}
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Message == nil || msg.Author == nil {
		return
	}
	b.engine.HandleCreate(context.Background(), toMessage(msg.Message))
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, msg *discordgo.MessageUpdate) {
	if msg.Message == nil || msg.EditedTimestamp == nil {
		return
	}
	if msg.BeforeUpdate == nil {
		b.logger.Debug("edited message not cached", zap.String("channel_id", msg.ChannelID), zap.String("message_id", msg.ID))
		return
	}
	before := toMessage(msg.BeforeUpdate)
	b.engine.HandleUpdate(context.Background(), before, mergeMessage(toMessage(msg.Message), before))
}

func (b *Bot) onMessageDelete(session *discordgo.Session, msg *discordgo.MessageDelete) {
	if msg.BeforeDelete == nil {
		b.logger.Debug("deleted message not cached", zap.String("channel_id", msg.ChannelID), zap.String("message_id", msg.ID))
		return
	}
	deleted := toMessage(msg.BeforeDelete)
	if deleted.GuildID == "" {
		deleted.GuildID = msg.GuildID
	}
	b.engine.HandleDelete(context.Background(), deleted)
}

func (b *Bot) notifyAudit(ctx context.Context, entry audit.Entry) {
	lang := b.cfg.Language
	fields := []*discordgo.MessageEmbedField{
		{Name: tr(lang, "field_event"), Value: entry.Event, Inline: true},
		{Name: tr(lang, "field_guild"), Value: entry.GuildID, Inline: true},
	}
	if entry.UserID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: tr(lang, "field_member"), Value: "<@" + entry.UserID + ">", Inline: true})
	}
	if entry.Details != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: tr(lang, "field_details"), Value: entry.Details})
	}
	embed := commandEmbed(tr(lang, "audit_title"), entry.Level, colorWarn, fields)
	if _, err := b.session.ChannelMessageSendEmbed(b.cfg.Audit.ChannelID, embed, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("audit mirror failed", zap.String("channel_id", b.cfg.Audit.ChannelID), zap.Error(err))
	}
}
