package discord

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/voice-bouncer/internal/app/service"
	"github.com/jose-valero/voice-bouncer/internal/domain"
)

const moveFailedText = "Error moving user to private VC. If they haven't left the VC, check that I have permissions to connect to the VC and to move members."

// handleMessageComponent: botones del join request.
func (r *Router) handleMessageComponent(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()
	action, requestID, ok := parseDecisionCustomID(data.CustomID)
	if !ok {
		return
	}
	actorID := interactionUserID(ic)
	log.Printf("[component] %s request=%s by=%s guild=%s", action, requestID, actorID, ic.GuildID)

	defer recoverReply("component "+string(action), func() {
		ReplyEphemeral(s, ic, "❌ Unexpected error while processing the button.")
	})

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	defer step(r.log, "component."+string(action))()
	status, err := r.workflow.Decide(ctx, requestID, action, actorID)
	ReplyEphemeral(s, ic, decisionReply(status, err))
}

func decisionReply(status domain.RequestStatus, err error) string {
	switch {
	case errors.Is(err, service.ErrMoveFailed):
		return moveFailedText
	case errors.Is(err, service.ErrRequestResolved), errors.Is(err, service.ErrRequestNotFound):
		return "ℹ️ This request has already been handled or has expired."
	case err != nil:
		return "⚠️ Unknown action."
	}
	switch status {
	case domain.RequestMoved:
		return "User moved to private VC."
	case domain.RequestRemembered:
		return "User moved to private VC and remembered for current session."
	case domain.RequestIgnored:
		return "User ignored for current session."
	}
	return "Done."
}
