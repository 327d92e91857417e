package service

import (
	"sort"
	"sync"
	"time"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

// Ventana fija de supresión de avisos repetidos por usuario.
const CooldownWindow = 15 * time.Minute

// session es el estado vivo de un guild mientras la sala privada está ocupada.
type session struct {
	guildID   string
	channels  domain.Channels
	startedAt time.Time

	cooldowns  map[string]time.Time
	remembered map[string]struct{}
	ignored    map[string]struct{}
}

func (s *session) view() domain.Session {
	return domain.Session{GuildID: s.guildID, Channels: s.channels, StartedAt: s.startedAt}
}

// Registry guarda las sesiones por guild. Todo el estado de políticas vive adentro
// de cada sesión y se descarta entero al terminarla.
type Registry struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]*session
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{now: now, sessions: map[string]*session{}}
}

// StartSession crea la sesión si no existe. Devuelve false si ya había una
// o si falta algún canal.
func (r *Registry) StartSession(guildID string, ch domain.Channels) bool {
	if guildID == "" || !ch.Complete() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[guildID]; ok {
		return false
	}
	r.sessions[guildID] = &session{
		guildID:    guildID,
		channels:   ch,
		startedAt:  r.now(),
		cooldowns:  map[string]time.Time{},
		remembered: map[string]struct{}{},
		ignored:    map[string]struct{}{},
	}
	return true
}

func (r *Registry) GetSession(guildID string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	if !ok {
		return domain.Session{}, false
	}
	return s.view(), true
}

func (r *Registry) HasSession(guildID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[guildID]
	return ok
}

// EndSession borra la sesión y todo su estado. No-op si no existe.
func (r *Registry) EndSession(guildID string) {
	r.remove(guildID)
}

// remove saca la sesión en una sola operación, así solo un caller "gana" el teardown.
func (r *Registry) remove(guildID string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	if !ok {
		return domain.Session{}, false
	}
	delete(r.sessions, guildID)
	return s.view(), true
}

// Sessions devuelve las sesiones activas ordenadas por guild.
func (r *Registry) Sessions() []domain.Session {
	r.mu.Lock()
	out := make([]domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.view())
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out
}

// with corre fn con el lock tomado sobre la sesión del guild (si existe).
func (r *Registry) with(guildID string, fn func(s *session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[guildID]; ok {
		fn(s)
	}
}
