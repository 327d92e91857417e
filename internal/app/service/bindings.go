package service

import (
	"context"
	"log/slog"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

// VoiceChange es un VoiceStateUpdate ya traducido (canal anterior → canal nuevo).
type VoiceChange struct {
	GuildID         string
	UserID          string
	Username        string
	AvatarURL       string
	BeforeChannelID string
	AfterChannelID  string
}

// Bindings traduce los eventos de voz en llamadas al registry y al workflow.
type Bindings struct {
	settings SettingsReader
	voice    VoiceGateway
	notify   Notifier
	sessions *Registry
	workflow *JoinWorkflow
	log      *slog.Logger
}

func NewBindings(settings SettingsReader, voice VoiceGateway, notify Notifier, sessions *Registry, workflow *JoinWorkflow, log *slog.Logger) *Bindings {
	if log == nil {
		log = slog.Default()
	}
	return &Bindings{
		settings: settings,
		voice:    voice,
		notify:   notify,
		sessions: sessions,
		workflow: workflow,
		log:      log,
	}
}

func (b *Bindings) OnVoiceStateUpdate(ctx context.Context, ch VoiceChange) {
	private := ""
	if sess, ok := b.sessions.GetSession(ch.GuildID); ok {
		private = sess.Channels.PrivateRoomID
	} else {
		st, err := b.settings.Get(ctx, ch.GuildID)
		if err != nil {
			b.log.Warn("settings lookup failed", "guild", ch.GuildID, "err", err)
			return
		}
		private = st.PrivateRoomID
	}

	if private != "" && (ch.BeforeChannelID == private || ch.AfterChannelID == private) {
		b.OnPrivateRoomChange(ctx, ch.GuildID)
	}

	// mute/deafen también disparan updates; solo cuenta el cambio de canal
	if ch.AfterChannelID != "" && ch.AfterChannelID != ch.BeforeChannelID {
		b.OnWaitingRoomArrival(ctx, domain.Arrival{
			GuildID:   ch.GuildID,
			UserID:    ch.UserID,
			Username:  ch.Username,
			AvatarURL: ch.AvatarURL,
		}, ch.AfterChannelID)
	}
}

// OnPrivateRoomChange abre la sesión cuando la sala privada pasa a estar ocupada
// y la cierra cuando queda vacía.
func (b *Bindings) OnPrivateRoomChange(ctx context.Context, guildID string) {
	log := b.log.With("guild", guildID)

	sess, active := b.sessions.GetSession(guildID)
	channels := sess.Channels
	if !active {
		st, err := b.settings.Get(ctx, guildID)
		if err != nil {
			log.Warn("settings lookup failed", "err", err)
			return
		}
		if !st.Ready() {
			return
		}
		channels = st.Channels()
	}

	n, err := b.voice.Occupants(guildID, channels.PrivateRoomID)
	if err != nil {
		log.Warn("occupants lookup failed", "err", err)
		return
	}

	switch {
	case n > 0 && !active:
		b.start(ctx, guildID, channels)
	case n == 0 && active:
		b.Teardown(ctx, guildID)
	}
}

// OnWaitingRoomArrival corre el workflow solo si hay sesión y el canal es la sala de espera.
func (b *Bindings) OnWaitingRoomArrival(ctx context.Context, who domain.Arrival, channelID string) ArrivalOutcome {
	sess, ok := b.sessions.GetSession(who.GuildID)
	if !ok {
		return OutcomeNoSession
	}
	if channelID != sess.Channels.WaitingRoomID {
		return ""
	}
	out := b.workflow.HandleArrival(ctx, sess, who)
	b.log.Debug("waiting room arrival", "guild", who.GuildID, "user", who.UserID, "outcome", string(out))
	return out
}

// Teardown termina la sesión del guild: expira los requests abiertos y avisa.
// Devuelve false si no había sesión (no manda aviso).
func (b *Bindings) Teardown(ctx context.Context, guildID string) bool {
	sess, ok := b.sessions.remove(guildID)
	if !ok {
		return false
	}
	expired := b.workflow.ExpireGuild(guildID)
	if err := b.notify.PostSessionEnded(ctx, sess.Channels); err != nil {
		b.log.Warn("post session ended failed", "guild", guildID, "err", err)
	}
	b.log.Info("session ended", "guild", guildID, "expired_requests", expired)
	return true
}

func (b *Bindings) start(ctx context.Context, guildID string, ch domain.Channels) {
	log := b.log.With("guild", guildID)

	checks := []struct {
		channelID string
		want      []domain.Capability
	}{
		{ch.PrivateRoomID, domain.VoiceCapabilities},
		{ch.WaitingRoomID, domain.VoiceCapabilities},
		{ch.NoticeChannelID, domain.TextCapabilities},
	}
	for _, c := range checks {
		missing, err := b.voice.MissingCapabilities(guildID, c.channelID, c.want)
		if err != nil {
			log.Warn("capability check failed", "channel", c.channelID, "err", err)
			return
		}
		if len(missing) > 0 {
			log.Info("session not started: missing capabilities", "channel", c.channelID, "missing", missing)
			return
		}
	}

	if !b.sessions.StartSession(guildID, ch) {
		return
	}
	// la sala pudo vaciarse durante el chequeo de permisos (REST)
	if n, err := b.voice.Occupants(guildID, ch.PrivateRoomID); err == nil && n == 0 {
		b.sessions.remove(guildID)
		b.workflow.ExpireGuild(guildID)
		log.Info("session not started: private room emptied")
		return
	}
	log.Info("session started", "private", ch.PrivateRoomID, "waiting", ch.WaitingRoomID)
	if err := b.notify.PostSessionStarted(ctx, ch); err != nil {
		log.Warn("post session started failed", "err", err)
	}
}
