package correction

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"counter-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	maxWebhookName  = 80
	fallbackWebhook = "counter"
)

// Discord is the subset of *discordgo.Session used to correct the channel.
type Discord interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookDelete(webhookID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

type Actions struct {
	api    Discord
	logger *zap.Logger
}

func New(api Discord, logger *zap.Logger) *Actions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Actions{api: api, logger: logger}
}

func (a *Actions) DeleteMessage(ctx context.Context, channelID, messageID string) {
	if err := a.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		a.logger.Warn("message delete failed", zap.String("channel_id", channelID), zap.String("message_id", messageID), zap.Error(err))
	}
}

// RestoreNumber reposts number in the member's name through a temporary
// webhook, or as the bot when the webhook path fails.
func (a *Actions) RestoreNumber(ctx context.Context, channelID, displayName, avatarURL string, number int64) {
	content := strconv.FormatInt(number, 10)
	if a.postAsMember(ctx, channelID, webhookName(displayName), avatarURL, content) {
		return
	}
	if _, err := a.api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		a.logger.Error("number restoration failed", zap.String("channel_id", channelID), zap.Int64("number", number), zap.Error(err))
	}
}

func (a *Actions) React(ctx context.Context, channelID, messageID, emoji string) {
	emojiID := utils.ReactionID(emoji)
	if emojiID == "" {
		return
	}
	if err := a.api.MessageReactionAdd(channelID, messageID, emojiID, discordgo.WithContext(ctx)); err != nil {
		a.logger.Warn("reaction failed", zap.String("channel_id", channelID), zap.String("message_id", messageID), zap.String("emoji", emoji), zap.Error(err))
	}
}

func (a *Actions) postAsMember(ctx context.Context, channelID, name, avatarURL, content string) bool {
	hook, err := a.api.WebhookCreate(channelID, name, "", discordgo.WithContext(ctx))
	if err != nil {
		a.logger.Warn("webhook create failed", zap.String("channel_id", channelID), zap.Error(err))
		return false
	}
	defer func() {
		if err := a.api.WebhookDelete(hook.ID, discordgo.WithContext(ctx)); err != nil {
			a.logger.Warn("webhook delete failed", zap.String("webhook_id", hook.ID), zap.Error(err))
		}
	}()

	params := &discordgo.WebhookParams{
		Content:         content,
		Username:        name,
		AvatarURL:       avatarURL,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if _, err := a.api.WebhookExecute(hook.ID, hook.Token, true, params, discordgo.WithContext(ctx)); err != nil {
		a.logger.Warn("webhook execute failed", zap.String("webhook_id", hook.ID), zap.Error(err))
		return false
	}
	return true
}

func webhookName(displayName string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return fallbackWebhook
	}
	for utf8.RuneCountInString(name) > maxWebhookName {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}
