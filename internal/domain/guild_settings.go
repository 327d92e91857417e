package domain

import "time"

// GuildSettings es la configuración persistida de un guild.
// Los IDs vacíos significan "no seteado".
type GuildSettings struct {
	GuildID         string
	GuildName       string
	PrivateRoomID   string
	WaitingRoomID   string
	NoticeChannelID string
	Enabled         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (g GuildSettings) Channels() Channels {
	return Channels{
		PrivateRoomID:   g.PrivateRoomID,
		WaitingRoomID:   g.WaitingRoomID,
		NoticeChannelID: g.NoticeChannelID,
	}
}

// Ready: habilitado y con los tres canales configurados.
func (g GuildSettings) Ready() bool {
	return g.Enabled && g.Channels().Complete()
}

// GuildSettingsPatch para updates parciales desde /bouncersetup
type GuildSettingsPatch struct {
	GuildName       *string
	PrivateRoomID   *string
	WaitingRoomID   *string
	NoticeChannelID *string
	Enabled         *bool
}
