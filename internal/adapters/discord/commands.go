package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/voice-bouncer/internal/app/service"
)

const setupCommandName = "bouncersetup"

var (
	voiceChannels = []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice}
	textChannels  = []discordgo.ChannelType{discordgo.ChannelTypeGuildText}
)

// setupSubcommands: definición y handler juntos, así el comando registrado y el
// dispatch no se desincronizan.
func setupSubcommands(setup *service.SetupService) []Subcommand {
	return []Subcommand{
		{
			Name:        "show-status",
			Description: "Show the current bouncer configuration",
			Handler: func(ctx context.Context, c *Ctx) (string, error) {
				return setup.Show(ctx, c.GuildID)
			},
		},
		{
			Name:         "set-private-vc",
			Description:  "Set the private voice channel",
			ChannelTypes: voiceChannels,
			Handler: func(ctx context.Context, c *Ctx) (string, error) {
				return setup.SetPrivateRoom(ctx, c.GuildID, c.GuildName, c.ChannelID)
			},
		},
		{
			Name:         "set-waiting-vc",
			Description:  "Set the waiting room voice channel",
			ChannelTypes: voiceChannels,
			Handler: func(ctx context.Context, c *Ctx) (string, error) {
				return setup.SetWaitingRoom(ctx, c.GuildID, c.GuildName, c.ChannelID)
			},
		},
		{
			Name:         "set-text-channel",
			Description:  "Set the text channel for join requests",
			ChannelTypes: textChannels,
			Handler: func(ctx context.Context, c *Ctx) (string, error) {
				return setup.SetNoticeChannel(ctx, c.GuildID, c.GuildName, c.ChannelID)
			},
		},
		{
			Name:        "enable",
			Description: "Enable the bouncer",
			Handler: func(ctx context.Context, c *Ctx) (string, error) {
				return setup.Enable(ctx, c.GuildID, c.GuildName)
			},
		},
		{
			Name:        "disable",
			Description: "Disable the bouncer",
			Handler: func(ctx context.Context, c *Ctx) (string, error) {
				return setup.Disable(ctx, c.GuildID)
			},
		},
		{
			Name:        "reset",
			Description: "Reset the bouncer configuration",
			Handler: func(ctx context.Context, c *Ctx) (string, error) {
				return setup.Reset(ctx, c.GuildID)
			},
		},
	}
}

func setupCommand(subs []Subcommand) *discordgo.ApplicationCommand {
	perm := int64(discordgo.PermissionModerateMembers)
	dm := false

	opts := make([]*discordgo.ApplicationCommandOption, 0, len(subs))
	for _, sc := range subs {
		o := &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        sc.Name,
			Description: sc.Description,
		}
		if sc.ChannelTypes != nil {
			o.Options = []*discordgo.ApplicationCommandOption{{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Channel",
				ChannelTypes: sc.ChannelTypes,
				Required:     true,
			}}
		}
		opts = append(opts, o)
	}
	return &discordgo.ApplicationCommand{
		Name:                     setupCommandName,
		Description:              "Configure the voice bouncer",
		DefaultMemberPermissions: &perm,
		DMPermission:             &dm,
		Options:                  opts,
	}
}
