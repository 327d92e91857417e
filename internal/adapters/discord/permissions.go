package discord

import "github.com/bwmarrin/discordgo"

func (r *Router) requireAdminOrRoles(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	ownerID := ""
	if g, _ := s.State.Guild(ic.GuildID); g != nil {
		ownerID = g.OwnerID
	}
	if canConfigure(ownerID, ic.Member, r.adminRoleIDs) {
		return true
	}
	ReplyEphemeral(s, ic, "🔒 You do not have permission to configure the bouncer.")
	return false
}

// canConfigure: owner, Administrator o ModerateMembers (permisos ya resueltos que
// manda la interacción) o alguno de los roles de ADMIN_ROLE_IDS.
func canConfigure(ownerID string, m *discordgo.Member, adminRoleIDs []string) bool {
	if m == nil || m.User == nil {
		return false
	}
	if ownerID != "" && m.User.ID == ownerID {
		return true
	}
	if m.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionModerateMembers) != 0 {
		return true
	}
	if len(adminRoleIDs) == 0 {
		return false
	}
	has := make(map[string]struct{}, len(m.Roles))
	for _, rid := range m.Roles {
		has[rid] = struct{}{}
	}
	for _, want := range adminRoleIDs {
		if _, ok := has[want]; ok {
			return true
		}
	}
	return false
}
