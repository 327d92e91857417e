package service

import (
	"context"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

// Lo implementa internal/infra/storage.GuildSettingsRepo (vía SettingsStore)
type SettingsReader interface {
	// Get nunca devuelve ErrNotFound: un guild sin fila es un guild sin configurar.
	Get(ctx context.Context, guildID string) (domain.GuildSettings, error)
}

type SettingsWriter interface {
	SettingsReader
	Update(ctx context.Context, guildID string, patch domain.GuildSettingsPatch) (domain.GuildSettings, error)
	Delete(ctx context.Context, guildID string) (bool, error)
}

// Lo implementa internal/adapters/discord.Gateway
type VoiceGateway interface {
	// Occupants cuenta los miembros en el canal de voz (sin contar al bot).
	Occupants(guildID, channelID string) (int, error)
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	// MissingCapabilities devuelve los permisos que le faltan al bot en el canal.
	MissingCapabilities(guildID, channelID string, want []domain.Capability) ([]domain.Capability, error)
}

// Lo implementa internal/adapters/discord.Notifier
type Notifier interface {
	PostJoinRequest(ctx context.Context, channels domain.Channels, requestID string, who domain.Arrival) (domain.MessageRef, error)
	// FinalizeJoinRequest deshabilita los botones y deja constancia del resultado.
	FinalizeJoinRequest(ctx context.Context, ref domain.MessageRef, channels domain.Channels, who domain.Arrival, res domain.Resolution) error
	PostSessionStarted(ctx context.Context, channels domain.Channels) error
	PostSessionEnded(ctx context.Context, channels domain.Channels) error
}

// Lo implementa internal/adapters/discord.AlertPlayer. Best effort, no bloquea.
type AlertPlayer interface {
	PlayAlert(guildID, channelID string)
}
