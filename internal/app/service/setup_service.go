package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

// Lo implementa Bindings
type SessionTerminator interface {
	Teardown(ctx context.Context, guildID string) bool
}

// SetupService es la lógica de /bouncersetup: guarda canales y el flag enabled.
type SetupService struct {
	repo     SettingsWriter
	voice    VoiceGateway
	sessions SessionTerminator
}

func NewSetupService(repo SettingsWriter, voice VoiceGateway, sessions SessionTerminator) *SetupService {
	return &SetupService{repo: repo, voice: voice, sessions: sessions}
}

func (s *SetupService) Show(ctx context.Context, guildID string) (string, error) {
	st, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	status := "❌ Disabled"
	if st.Enabled {
		status = "✅ Enabled"
	}
	return fmt.Sprintf(
		"**Bouncer status**\n• Private voice channel: %s\n• Waiting room voice channel: %s\n• Text channel: %s\n• Status: %s",
		channelOrHint(st.PrivateRoomID, "set-private-vc"),
		channelOrHint(st.WaitingRoomID, "set-waiting-vc"),
		channelOrHint(st.NoticeChannelID, "set-text-channel"),
		status,
	), nil
}

func (s *SetupService) SetPrivateRoom(ctx context.Context, guildID, guildName, channelID string) (string, error) {
	if msg, ok := s.checkCapabilities(guildID, channelID, domain.VoiceCapabilities); !ok {
		return msg, nil
	}
	if _, err := s.repo.Update(ctx, guildID, domain.GuildSettingsPatch{GuildName: &guildName, PrivateRoomID: &channelID}); err != nil {
		return "", fmt.Errorf("update private room: %w", err)
	}
	return fmt.Sprintf("The private channel has been updated to <#%s>.", channelID), nil
}

func (s *SetupService) SetWaitingRoom(ctx context.Context, guildID, guildName, channelID string) (string, error) {
	if msg, ok := s.checkCapabilities(guildID, channelID, domain.VoiceCapabilities); !ok {
		return msg, nil
	}
	if _, err := s.repo.Update(ctx, guildID, domain.GuildSettingsPatch{GuildName: &guildName, WaitingRoomID: &channelID}); err != nil {
		return "", fmt.Errorf("update waiting room: %w", err)
	}
	return fmt.Sprintf("The waiting room channel has been updated to <#%s>.", channelID), nil
}

func (s *SetupService) SetNoticeChannel(ctx context.Context, guildID, guildName, channelID string) (string, error) {
	if msg, ok := s.checkCapabilities(guildID, channelID, domain.TextCapabilities); !ok {
		return msg, nil
	}
	if _, err := s.repo.Update(ctx, guildID, domain.GuildSettingsPatch{GuildName: &guildName, NoticeChannelID: &channelID}); err != nil {
		return "", fmt.Errorf("update text channel: %w", err)
	}
	return fmt.Sprintf("The text channel has been updated to <#%s>.", channelID), nil
}

func (s *SetupService) Enable(ctx context.Context, guildID, guildName string) (string, error) {
	st, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if !st.Channels().Complete() {
		return "All channels must be set up before enabling the bouncer.", nil
	}
	on := true
	if _, err := s.repo.Update(ctx, guildID, domain.GuildSettingsPatch{GuildName: &guildName, Enabled: &on}); err != nil {
		return "", fmt.Errorf("enable: %w", err)
	}
	return "The bouncer has been enabled for this server.", nil
}

func (s *SetupService) Disable(ctx context.Context, guildID string) (string, error) {
	off := false
	if _, err := s.repo.Update(ctx, guildID, domain.GuildSettingsPatch{Enabled: &off}); err != nil {
		return "", fmt.Errorf("disable: %w", err)
	}
	s.sessions.Teardown(ctx, guildID)
	return "The bouncer has been disabled for this server.", nil
}

func (s *SetupService) Reset(ctx context.Context, guildID string) (string, error) {
	if _, err := s.repo.Delete(ctx, guildID); err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}
	s.sessions.Teardown(ctx, guildID)
	return "The bouncer has been reset for this server.", nil
}

// checkCapabilities arma el aviso para quien corrió el comando si al bot le faltan permisos.
func (s *SetupService) checkCapabilities(guildID, channelID string, want []domain.Capability) (string, bool) {
	missing, err := s.voice.MissingCapabilities(guildID, channelID, want)
	if err != nil {
		return "Error checking channel permissions.", false
	}
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, c := range missing {
			names[i] = string(c)
		}
		return "I do not have permission(s) to perform this action.\nMissing permissions: `" + strings.Join(names, ", ") + "`", false
	}
	return "", true
}

func channelOrHint(id, sub string) string {
	if id == "" {
		return "Set it using `/bouncersetup " + sub + "`"
	}
	return "<#" + id + ">"
}
