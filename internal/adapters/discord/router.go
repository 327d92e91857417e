package discord

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/voice-bouncer/internal/app/service"
)

type Router struct {
	s *discordgo.Session
	// "" = comandos globales
	cmdGuildID   string
	adminRoleIDs []string
	log          *slog.Logger

	bindings    *service.Bindings
	workflow    *service.JoinWorkflow
	command     *discordgo.ApplicationCommand
	subcommands map[string]Subcommand
}

func NewRouter(
	s *discordgo.Session,
	cmdGuildID string,
	adminRoleIDs []string,
	bindings *service.Bindings,
	workflow *service.JoinWorkflow,
	setup *service.SetupService,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	subs := setupSubcommands(setup)
	byName := make(map[string]Subcommand, len(subs))
	for _, sc := range subs {
		byName[sc.Name] = sc
	}
	return &Router{
		s:            s,
		cmdGuildID:   cmdGuildID,
		adminRoleIDs: adminRoleIDs,
		log:          logger,
		bindings:     bindings,
		workflow:     workflow,
		command:      setupCommand(subs),
		subcommands:  byName,
	}
}

// Register crea (o pisa) /bouncersetup. Llamar después de Open.
func (r *Router) Register() error {
	appID := r.s.State.User.ID
	_, err := r.s.ApplicationCommandCreate(appID, r.cmdGuildID, r.command)
	return err
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlashCommand(s, ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(s, ic)
		}
	})
	r.s.AddHandler(r.onVoiceStateUpdate)
	r.s.AddHandler(r.onGuildCreate)
}

// onVoiceStateUpdate: el State ya está actualizado cuando llega acá,
// así que el conteo de ocupantes refleja el cambio.
func (r *Router) onVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.GuildID == "" || vs.UserID == s.State.User.ID {
		return
	}
	change := voiceChange(vs)
	if change.BeforeChannelID == change.AfterChannelID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.bindings.OnVoiceStateUpdate(ctx, change)
}

func voiceChange(vs *discordgo.VoiceStateUpdate) service.VoiceChange {
	who := arrivalFrom(vs.GuildID, vs.UserID, vs.Member)
	ch := service.VoiceChange{
		GuildID:        who.GuildID,
		UserID:         who.UserID,
		Username:       who.Username,
		AvatarURL:      who.AvatarURL,
		AfterChannelID: vs.ChannelID,
	}
	if vs.BeforeUpdate != nil {
		ch.BeforeChannelID = vs.BeforeUpdate.ChannelID
	}
	return ch
}

// onGuildCreate llega por cada guild al conectar: si la sala privada ya está
// ocupada se abre una sesión nueva (sin estado previo).
func (r *Router) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	log.Printf("[guild] ready %s (%s) voice_states=%d", g.Name, g.ID, len(g.VoiceStates))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.bindings.OnPrivateRoomChange(ctx, g.ID)
}
