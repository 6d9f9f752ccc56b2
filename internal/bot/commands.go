package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	maxTimeoutMinutes = 1440
	maxStartingNumber = 1000000
)

var manageServer int64 = discordgo.PermissionManageServer

var (
	guildOnly = false
	zero      = 0.0
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "setup",
			Description: "Configure the counting channel",
			NameLocalizations: &map[discordgo.Locale]string{
				discordgo.French: "configuration",
			},
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French: "Configurer le salon de comptage",
			},
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel where members count",
					NameLocalizations: map[discordgo.Locale]string{
						discordgo.French: "salon",
					},
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.French: "Salon où les membres comptent",
					},
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildPublicThread},
					Required:     true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "timeout_role",
					Description: "Role given to members who break the count",
					NameLocalizations: map[discordgo.Locale]string{
						discordgo.French: "role_sanction",
					},
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.French: "Rôle donné aux membres qui cassent le comptage",
					},
					Required: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "timeout_time",
					Description: "Timeout length in minutes",
					NameLocalizations: map[discordgo.Locale]string{
						discordgo.French: "duree_sanction",
					},
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.French: "Durée de la sanction en minutes",
					},
					MinValue: &zero,
					MaxValue: maxTimeoutMinutes,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "emoji",
					Description: "Reaction for correct numbers, or \"no\"",
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.French: "Réaction pour les bons nombres, ou « no »",
					},
					MaxLength: 64,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "starting_number",
					Description: "Number the count starts from",
					NameLocalizations: map[discordgo.Locale]string{
						discordgo.French: "nombre_depart",
					},
					DescriptionLocalizations: map[discordgo.Locale]string{
						discordgo.French: "Nombre à partir duquel le comptage commence",
					},
					MinValue: &zero,
					MaxValue: maxStartingNumber,
				},
			},
		},
		{
			Name:        "status",
			Description: "Show the counting state",
			NameLocalizations: &map[discordgo.Locale]string{
				discordgo.French: "etat",
			},
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French: "Afficher l'état du comptage",
			},
			DMPermission: &guildOnly,
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()
	appID := b.session.State.User.ID

	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		_, err = b.session.ApplicationCommandBulkOverwrite(appID, "", commands)
		return err
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	// Commands left over from older releases.
	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		if err := b.session.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			b.logger.Warn("stale command delete failed", zap.String("command", cmd.Name), zap.Error(err))
		}
	}
	return nil
}
