package bot

import (
	"strings"

	"counter-bot/internal/config"
	"counter-bot/internal/storage"
	"counter-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

type setupRequest struct {
	ChannelID      string
	RoleID         string
	TimeoutMinutes int
	Emoji          string
	StartingNumber int64
}

func (r setupRequest) record(guildID string) storage.GuildConfig {
	return storage.GuildConfig{
		GuildID:        guildID,
		CurrentNumber:  r.StartingNumber,
		LastPosterID:   storage.NoPoster,
		ChannelID:      r.ChannelID,
		TimeoutMinutes: r.TimeoutMinutes,
		TimeoutRoleID:  r.RoleID,
		ReactionEmoji:  r.Emoji,
	}
}

// parseSetup reads the /setup options. The second value is a message key
// describing the first invalid option.
func parseSetup(options []*discordgo.ApplicationCommandInteractionDataOption, defaults config.SetupDefaults) (setupRequest, string) {
	req := setupRequest{TimeoutMinutes: defaults.TimeoutMinutes, Emoji: defaults.Emoji}
	for _, opt := range options {
		switch {
		case opt.Name == "channel" && opt.Type == discordgo.ApplicationCommandOptionChannel:
			req.ChannelID = opt.ChannelValue(nil).ID
		case opt.Name == "timeout_role" && opt.Type == discordgo.ApplicationCommandOptionRole:
			req.RoleID = opt.RoleValue(nil, "").ID
		case opt.Name == "timeout_time" && opt.Type == discordgo.ApplicationCommandOptionInteger:
			minutes := opt.IntValue()
			if minutes < 0 || minutes > maxTimeoutMinutes {
				return setupRequest{}, "error_invalid_option"
			}
			req.TimeoutMinutes = int(minutes)
		case opt.Name == "emoji" && opt.Type == discordgo.ApplicationCommandOptionString:
			emoji, ok := normalizeEmoji(opt.StringValue())
			if !ok {
				return setupRequest{}, "error_invalid_emoji"
			}
			req.Emoji = emoji
		case opt.Name == "starting_number" && opt.Type == discordgo.ApplicationCommandOptionInteger:
			start := opt.IntValue()
			if start < 0 || start > maxStartingNumber {
				return setupRequest{}, "error_invalid_option"
			}
			req.StartingNumber = start
		}
	}
	if req.ChannelID == "" || req.RoleID == "" {
		return setupRequest{}, "error_invalid_option"
	}
	if req.Emoji == "" {
		req.Emoji = storage.DefaultEmoji
	}
	return req, ""
}

func normalizeEmoji(raw string) (string, bool) {
	emoji := strings.TrimSpace(raw)
	switch {
	case strings.EqualFold(emoji, storage.NoReaction):
		return storage.NoReaction, true
	case utils.IsUnicodeEmoji(emoji):
		return emoji, true
	}
	if _, _, ok := utils.CustomEmoji(emoji); ok {
		return emoji, true
	}
	return "", false
}
