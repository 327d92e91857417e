package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

type Ctx struct {
	Log       *slog.Logger
	Session   *discordgo.Session
	Event     *discordgo.InteractionCreate
	GuildID   string
	GuildName string
	UserID    string
	// ChannelID: opción "channel" del subcomando (si aplica)
	ChannelID string
}

// SubcommandHandler devuelve el texto efímero para quien corrió el comando.
type SubcommandHandler func(ctx context.Context, c *Ctx) (string, error)

type Subcommand struct {
	Name        string
	Description string
	// ChannelTypes != nil => el subcomando pide la opción "channel"
	ChannelTypes []discordgo.ChannelType
	Handler      SubcommandHandler
}
