package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

const (
	colorPending = 0x5865F2
	colorMoved   = 0x57F287
	colorIgnored = 0xED4245
	colorExpired = 0x95A5A6
	colorSession = 0xFEE75C
)

// Notifier implementa service.Notifier: avisos y join requests en el canal de texto.
type Notifier struct {
	s *discordgo.Session
}

func NewNotifier(s *discordgo.Session) *Notifier { return &Notifier{s: s} }

func (n *Notifier) PostJoinRequest(ctx context.Context, ch domain.Channels, requestID string, who domain.Arrival) (domain.MessageRef, error) {
	msg, err := n.s.ChannelMessageSendComplex(ch.NoticeChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{joinRequestEmbed(ch, who, nil)},
		Components: []discordgo.MessageComponent{decisionRow(requestID, false)},
		// el usuario se menciona en el embed, no queremos ping
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (n *Notifier) FinalizeJoinRequest(ctx context.Context, ref domain.MessageRef, ch domain.Channels, who domain.Arrival, res domain.Resolution) error {
	if ref.MessageID == "" {
		return nil
	}
	em := []*discordgo.MessageEmbed{joinRequestEmbed(ch, who, &res)}
	// deshabilitados: el custom id ya no se usa, alcanza con que sea único
	cc := []discordgo.MessageComponent{decisionRow(ref.MessageID, true)}
	_, err := n.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ref.ChannelID,
		ID:         ref.MessageID,
		Embeds:     &em,
		Components: &cc,
	}, discordgo.WithContext(ctx))
	return err
}

func (n *Notifier) PostSessionStarted(ctx context.Context, ch domain.Channels) error {
	_, err := n.s.ChannelMessageSendEmbed(ch.NoticeChannelID, &discordgo.MessageEmbed{
		Title:       "New session started",
		Description: fmt.Sprintf("You will be notified of all people who join <#%s> in this channel.", ch.WaitingRoomID),
		Color:       colorSession,
	}, discordgo.WithContext(ctx))
	return err
}

func (n *Notifier) PostSessionEnded(ctx context.Context, ch domain.Channels) error {
	_, err := n.s.ChannelMessageSendEmbed(ch.NoticeChannelID, &discordgo.MessageEmbed{
		Title:       "Session Ended",
		Description: "All members have left the private voice channel. The session has ended.",
		Color:       colorExpired,
	}, discordgo.WithContext(ctx))
	return err
}

// joinRequestEmbed: res == nil es el aviso pendiente; con res agrega el resultado.
func joinRequestEmbed(ch domain.Channels, who domain.Arrival, res *domain.Resolution) *discordgo.MessageEmbed {
	em := &discordgo.MessageEmbed{
		Title:       "Join Request",
		Description: fmt.Sprintf("<@%s> wants to join the <#%s> channel.", who.UserID, ch.PrivateRoomID),
		Color:       colorPending,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Requested by " + who.Username},
	}
	if who.AvatarURL != "" {
		em.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: who.AvatarURL}
	}
	if res == nil {
		return em
	}
	em.Color = outcomeColor(res.Status)
	em.Fields = []*discordgo.MessageEmbedField{{Name: "Outcome", Value: outcomeText(*res)}}
	return em
}

func outcomeText(res domain.Resolution) string {
	var txt string
	switch res.Status {
	case domain.RequestMoved:
		txt = fmt.Sprintf("✅ Moved by <@%s>", res.ActorID)
	case domain.RequestRemembered:
		txt = fmt.Sprintf("✅ Moved and remembered for this session by <@%s>", res.ActorID)
	case domain.RequestIgnored:
		txt = fmt.Sprintf("🚫 Ignored for this session by <@%s>", res.ActorID)
	case domain.RequestExpired:
		if res.SessionEnded {
			return "⌛ Session ended"
		}
		return "⌛ Expired without a decision"
	default:
		return string(res.Status)
	}
	if res.MoveFailed {
		txt += " (move failed)"
	}
	return txt
}

func outcomeColor(st domain.RequestStatus) int {
	switch st {
	case domain.RequestMoved, domain.RequestRemembered:
		return colorMoved
	case domain.RequestIgnored:
		return colorIgnored
	}
	return colorExpired
}

func decisionRow(requestID string, disabled bool) discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Move",
				Style:    discordgo.PrimaryButton,
				CustomID: decisionCustomID(domain.ActionMove, requestID),
				Disabled: disabled,
			},
			discordgo.Button{
				Label:    "Move + remember",
				Style:    discordgo.SuccessButton,
				CustomID: decisionCustomID(domain.ActionRemember, requestID),
				Disabled: disabled,
			},
			discordgo.Button{
				Label:    "Ignore for this session",
				Style:    discordgo.DangerButton,
				CustomID: decisionCustomID(domain.ActionIgnore, requestID),
				Disabled: disabled,
			},
		},
	}
}
