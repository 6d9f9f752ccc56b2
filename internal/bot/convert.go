package bot

import (
	"counter-bot/internal/modules/counting"

	"github.com/bwmarrin/discordgo"
)

func toMessage(m *discordgo.Message) counting.Message {
	out := counting.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		ID:        m.ID,
		Content:   m.Content,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.Bot = m.Author.Bot
		out.DisplayName = m.Author.Username
		out.AvatarURL = m.Author.AvatarURL("")
	}
	if m.Member != nil && m.Member.Nick != "" {
		out.DisplayName = m.Member.Nick
	}
	return out
}

// mergeMessage fills the fields a partial update payload leaves out.
func mergeMessage(after, before counting.Message) counting.Message {
	if after.GuildID == "" {
		after.GuildID = before.GuildID
	}
	if after.AuthorID == "" {
		after.AuthorID = before.AuthorID
		after.Bot = before.Bot
	}
	if before.DisplayName != "" {
		after.DisplayName = before.DisplayName
	}
	if after.AvatarURL == "" {
		after.AvatarURL = before.AvatarURL
	}
	return after
}
