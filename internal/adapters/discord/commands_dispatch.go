// lógica de InteractionApplicationCommand: validar quién llama y despachar al SetupService
package discord

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
)

func (r *Router) handleSlashCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	cmd := ic.ApplicationCommandData()
	userID := interactionUserID(ic)
	log.Printf("[cmd] /%s by=%s guild=%s", cmd.Name, userID, ic.GuildID)

	defer recoverReply("cmd /"+cmd.Name, func() {
		ReplyEphemeral(s, ic, "❌ Unexpected error while processing the command.")
	})

	if cmd.Name != setupCommandName || ic.GuildID == "" {
		return
	}

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if !r.requireAdminOrRoles(s, ic) {
		return
	}

	sub, ok := subcmdName(ic)
	if !ok {
		ReplyEphemeral(s, ic, "Use `/bouncersetup show-status` to see the current configuration.")
		return
	}
	sc, ok := r.subcommands[sub]
	if !ok {
		ReplyEphemeral(s, ic, "Unknown subcommand.")
		return
	}

	c := &Ctx{
		Log:     r.log.With("guild", ic.GuildID, "user", userID, "cmd", sub),
		Session: s,
		Event:   ic,
		GuildID: ic.GuildID,
		UserID:  userID,
	}
	if g, err := s.State.Guild(ic.GuildID); err == nil {
		c.GuildName = g.Name
	}
	if sc.ChannelTypes != nil {
		if c.ChannelID, ok = optChannel(ic, "channel"); !ok {
			ReplyEphemeral(s, ic, "⚠️ A channel is required.")
			return
		}
	}

	defer step(c.Log, "cmd."+sub)()
	msg, err := sc.Handler(ctx, c)
	if err != nil {
		c.Log.Error("setup command failed", "err", err)
		msg = "⚠️ Could not save the configuration, try again later."
	}
	ReplyEphemeral(s, ic, msg)
}
