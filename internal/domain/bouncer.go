package domain

import "time"

// Channels es la foto de la configuración tomada al arrancar una sesión.
type Channels struct {
	PrivateRoomID   string
	WaitingRoomID   string
	NoticeChannelID string
}

// Complete reporta si los tres canales están seteados.
func (c Channels) Complete() bool {
	return c.PrivateRoomID != "" && c.WaitingRoomID != "" && c.NoticeChannelID != ""
}

// Session es la vista de solo lectura de una sesión activa.
type Session struct {
	GuildID   string
	Channels  Channels
	StartedAt time.Time
}

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestMoved      RequestStatus = "moved"
	RequestRemembered RequestStatus = "remembered"
	RequestIgnored    RequestStatus = "ignored"
	RequestExpired    RequestStatus = "expired"
)

// Action es la decisión que un moderador toma sobre un join request.
type Action string

const (
	ActionMove     Action = "move"
	ActionRemember Action = "remember"
	ActionIgnore   Action = "ignore"
)

// Status devuelve el estado terminal al que lleva la acción.
func (a Action) Status() (RequestStatus, bool) {
	switch a {
	case ActionMove:
		return RequestMoved, true
	case ActionRemember:
		return RequestRemembered, true
	case ActionIgnore:
		return RequestIgnored, true
	}
	return "", false
}

// Resolution es lo que queda escrito en el aviso cuando el request se cierra.
type Resolution struct {
	Status       RequestStatus
	ActorID      string // vacío si expiró
	MoveFailed   bool
	SessionEnded bool
}

// Arrival describe a quien entró a la sala de espera.
type Arrival struct {
	GuildID   string
	UserID    string
	Username  string
	AvatarURL string
}

// MessageRef apunta al mensaje interactivo publicado en el canal de avisos.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Capability es un permiso que el bot necesita en un canal.
type Capability string

const (
	CapConnect      Capability = "Connect"
	CapSpeak        Capability = "Speak"
	CapMoveMembers  Capability = "MoveMembers"
	CapViewChannel  Capability = "ViewChannel"
	CapSendMessages Capability = "SendMessages"
)

var (
	VoiceCapabilities = []Capability{CapConnect, CapSpeak, CapMoveMembers}
	TextCapabilities  = []Capability{CapViewChannel, CapSendMessages}
)
