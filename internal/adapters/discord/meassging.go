package discord

import (
	"errors"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Discord: "Unknown Webhook", todavía no hay respuesta a la interacción.
const errCodeUnknownWebhook = 10015

// Defer efímero: Discord da 3s para responder y el move/DB puede tardar más.
func DeferEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("[reply] defer error: %v", err)
	}
	return err
}

func ReplyEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content:         content,
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err == nil {
		return
	}
	// Fallback sólo si el defer no llegó
	if unknownWebhook(err) {
		_ = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:         content,
				Flags:           discordgo.MessageFlagsEphemeral,
				AllowedMentions: &discordgo.MessageAllowedMentions{},
			},
		})
		return
	}
	log.Printf("[reply] followup error: %v", err)
}

func unknownWebhook(err error) bool {
	var reqErr *discordgo.RESTError
	return errors.As(err, &reqErr) && reqErr.Message != nil && reqErr.Message.Code == errCodeUnknownWebhook
}

// recoverReply va en un defer de los handlers de interacción: un panic se loguea
// y se contesta en vez de tirar el proceso.
func recoverReply(tag string, reply func()) {
	if rec := recover(); rec != nil {
		log.Printf("[%s] panic: %v", tag, rec)
		reply()
	}
}
