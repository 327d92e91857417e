package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

var capabilityBits = map[domain.Capability]int64{
	domain.CapConnect:      discordgo.PermissionVoiceConnect,
	domain.CapSpeak:        discordgo.PermissionVoiceSpeak,
	domain.CapMoveMembers:  discordgo.PermissionVoiceMoveMembers,
	domain.CapViewChannel:  discordgo.PermissionViewChannel,
	domain.CapSendMessages: discordgo.PermissionSendMessages,
}

// Gateway implementa service.VoiceGateway sobre el State de discordgo
// (ocupación y permisos) y la REST API (move).
type Gateway struct {
	s *discordgo.Session
}

func NewGateway(s *discordgo.Session) *Gateway { return &Gateway{s: s} }

func (g *Gateway) botID() string {
	if g.s.State == nil || g.s.State.User == nil {
		return ""
	}
	return g.s.State.User.ID
}

func (g *Gateway) Occupants(guildID, channelID string) (int, error) {
	guild, err := g.s.State.Guild(guildID)
	if err != nil {
		return 0, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}
	g.s.State.RLock()
	defer g.s.State.RUnlock()
	return countOccupants(guild.VoiceStates, channelID, g.botID()), nil
}

func countOccupants(states []*discordgo.VoiceState, channelID, botID string) int {
	n := 0
	for _, vs := range states {
		if vs == nil || vs.ChannelID != channelID || vs.UserID == botID {
			continue
		}
		n++
	}
	return n
}

func (g *Gateway) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	return g.s.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx))
}

func (g *Gateway) MissingCapabilities(guildID, channelID string, want []domain.Capability) ([]domain.Capability, error) {
	if _, err := g.safeGetChannel(channelID); err != nil {
		return nil, err
	}
	perms, err := g.s.State.UserChannelPermissions(g.botID(), channelID)
	if err != nil {
		return nil, fmt.Errorf("permissions in %s: %w", channelID, err)
	}
	return missingCapabilities(perms, want), nil
}

func missingCapabilities(perms int64, want []domain.Capability) []domain.Capability {
	var missing []domain.Capability
	for _, c := range want {
		bit, ok := capabilityBits[c]
		if !ok || perms&bit != bit {
			missing = append(missing, c)
		}
	}
	return missing
}

// El State no siempre tiene el canal (p.ej. recién creado): lo pedimos y lo cacheamos.
func (g *Gateway) safeGetChannel(id string) (*discordgo.Channel, error) {
	if ch, err := g.s.State.Channel(id); err == nil && ch != nil {
		return ch, nil
	}
	ch, err := g.s.Channel(id)
	if err != nil {
		return nil, err
	}
	_ = g.s.State.ChannelAdd(ch)
	return ch, nil
}
