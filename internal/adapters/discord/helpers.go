package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

// Los botones del join request llevan "bouncer:<acción>:<request id>".
const customIDPrefix = "bouncer"

func decisionCustomID(action domain.Action, requestID string) string {
	return customIDPrefix + ":" + string(action) + ":" + requestID
}

func parseDecisionCustomID(id string) (domain.Action, string, bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != customIDPrefix || parts[2] == "" {
		return "", "", false
	}
	a := domain.Action(parts[1])
	if _, ok := a.Status(); !ok {
		return "", "", false
	}
	return a, parts[2], true
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

// optChannel busca la opción de canal dentro del subcomando.
func optChannel(ic *discordgo.InteractionCreate, name string) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionChannel {
			return channelID(o)
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionChannel {
					return channelID(so)
				}
			}
		}
	}
	return "", false
}

func channelID(o *discordgo.ApplicationCommandInteractionDataOption) (string, bool) {
	id, ok := o.Value.(string)
	return id, ok && id != ""
}

// arrivalFrom arma el Arrival con lo que venga en el evento (Member puede venir nil).
func arrivalFrom(guildID, userID string, m *discordgo.Member) domain.Arrival {
	a := domain.Arrival{GuildID: guildID, UserID: userID, Username: userID}
	if m == nil || m.User == nil {
		return a
	}
	a.Username = m.User.Username
	if m.Nick != "" {
		a.Username = m.Nick
	}
	a.AvatarURL = m.AvatarURL("128")
	return a
}

func interactionUserID(ic *discordgo.InteractionCreate) string {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User.ID
	}
	if ic.User != nil {
		return ic.User.ID
	}
	return ""
}
