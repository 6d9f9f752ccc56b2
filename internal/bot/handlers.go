package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"counter-bot/internal/modules/audit"
	"counter-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const statusWindow = 24 * time.Hour

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	lang := b.cfg.Language
	data := interaction.ApplicationCommandData()
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, commandEmbed(tr(lang, "setup_title"), tr(lang, "error_only_guild"), colorError, nil))
		return
	}

	switch data.Name {
	case "setup":
		b.handleSetup(ctx, session, interaction, data.Options)
	case "status":
		b.handleStatus(ctx, session, interaction)
	}
}

func (b *Bot) handleSetup(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	lang := b.cfg.Language
	req, problem := parseSetup(options, b.cfg.Defaults)
	if problem != "" {
		b.respondEmbed(session, interaction, commandEmbed(tr(lang, "setup_title"), tr(lang, problem), colorError, nil))
		return
	}

	guildID := interaction.GuildID
	if err := b.store.Setup(ctx, req.record(guildID)); err != nil {
		b.respondEmbed(session, interaction, commandEmbed(tr(lang, "setup_title"), tr(lang, "error_failed"), colorError, nil))
		return
	}

	starting := strconv.FormatInt(req.StartingNumber, 10)
	if _, err := session.ChannelMessageSend(req.ChannelID, starting, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("starting number post failed", zap.String("guild_id", guildID), zap.String("channel_id", req.ChannelID), zap.Error(err))
	}

	actor := ""
	if interaction.Member != nil && interaction.Member.User != nil {
		actor = interaction.Member.User.ID
	}
	b.audit.Log(ctx, audit.LevelInfo, guildID, actor, audit.EventSetup, "channel "+req.ChannelID+" start "+starting)

	fields := []*discordgo.MessageEmbedField{
		{Name: tr(lang, "field_channel"), Value: "<#" + req.ChannelID + ">", Inline: true},
		{Name: tr(lang, "field_role"), Value: "<@&" + req.RoleID + ">", Inline: true},
		{Name: tr(lang, "field_timeout"), Value: timeoutLabel(lang, req.TimeoutMinutes), Inline: true},
		{Name: tr(lang, "field_emoji"), Value: req.Emoji, Inline: true},
		{Name: tr(lang, "field_current"), Value: starting, Inline: true},
	}
	b.respondEmbed(session, interaction, commandEmbed(tr(lang, "setup_title"), tr(lang, "setup_done"), colorOK, fields))
}

func (b *Bot) handleStatus(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	lang := b.cfg.Language
	cfg, ok := b.store.Get(ctx, interaction.GuildID)
	if !ok {
		b.respondEmbed(session, interaction, commandEmbed(tr(lang, "status_title"), tr(lang, "error_not_configured"), colorWarn, nil))
		return
	}
	b.respondEmbed(session, interaction, b.statusEmbed(ctx, lang, cfg))
}

func (b *Bot) statusEmbed(ctx context.Context, lang string, cfg storage.GuildConfig) *discordgo.MessageEmbed {
	lastPoster := tr(lang, "value_none")
	if cfg.LastPosterID != storage.NoPoster && cfg.LastPosterID != "" {
		lastPoster = "<@" + cfg.LastPosterID + ">"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: tr(lang, "field_channel"), Value: "<#" + cfg.ChannelID + ">", Inline: true},
		{Name: tr(lang, "field_current"), Value: strconv.FormatInt(cfg.CurrentNumber, 10), Inline: true},
		{Name: tr(lang, "field_next"), Value: strconv.FormatInt(cfg.NextNumber(), 10), Inline: true},
		{Name: tr(lang, "field_last_poster"), Value: lastPoster, Inline: true},
		{Name: tr(lang, "field_timeout"), Value: timeoutLabel(lang, cfg.TimeoutMinutes) + " <@&" + cfg.TimeoutRoleID + ">", Inline: true},
		{Name: tr(lang, "field_emoji"), Value: cfg.ReactionEmoji, Inline: true},
	}
	if b.penalty != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: tr(lang, "field_timed_out"), Value: strconv.Itoa(b.penalty.Pending(cfg.GuildID)), Inline: true})
	}
	if b.parser != nil {
		if used, limit := b.parser.EvaluatorCalls(cfg.GuildID); limit > 0 {
			fields = append(fields, &discordgo.MessageEmbedField{Name: tr(lang, "field_evaluator"), Value: fmt.Sprintf("%d/%d", used, limit), Inline: true})
		}
	}
	if b.analytics != nil {
		report := b.analytics.Report(ctx, cfg.GuildID, time.Now().Add(-statusWindow))
		fields = append(fields,
			&discordgo.MessageEmbedField{Name: tr(lang, "field_accepted"), Value: strconv.Itoa(report.ByEvent[audit.EventAccepted]), Inline: true},
			&discordgo.MessageEmbedField{Name: tr(lang, "field_rejected"), Value: strconv.Itoa(report.ByEvent[audit.EventRejected]), Inline: true},
			&discordgo.MessageEmbedField{Name: tr(lang, "field_restored"), Value: strconv.Itoa(report.ByEvent[audit.EventRestored]), Inline: true},
		)
	}
	return commandEmbed(tr(lang, "status_title"), tr(lang, "status_desc"), colorOK, fields)
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}
}

func commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func timeoutLabel(lang string, minutes int) string {
	if minutes <= 0 {
		return tr(lang, "value_disabled")
	}
	return fmt.Sprintf(tr(lang, "value_minutes"), minutes)
}
