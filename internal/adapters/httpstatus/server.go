package httpstatus

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

// Lo implementa service.Registry
type SessionSource interface {
	Sessions() []domain.Session
}

// Lo implementa service.JoinWorkflow
type PendingCounter interface {
	Pending(guildID string) int
}

// Lo implementa storage.GuildSettingsRepo
type SettingsLister interface {
	ListByGuildIDs(ctx context.Context, ids []string) ([]domain.GuildSettings, error)
}

type sessionView struct {
	GuildID         string    `json:"guild_id"`
	GuildName       string    `json:"guild_name"`
	PrivateRoomID   string    `json:"private_vc_id"`
	WaitingRoomID   string    `json:"waiting_vc_id"`
	NoticeChannelID string    `json:"text_channel_id"`
	StartedAt       time.Time `json:"started_at"`
	PendingRequests int       `json:"pending_requests"`
}

type Server struct {
	sessions SessionSource
	pending  PendingCounter
	settings SettingsLister
	mux      *http.ServeMux
}

func New(sessions SessionSource, pending PendingCounter, settings SettingsLister) *Server {
	s := &Server{sessions: sessions, pending: pending, settings: settings, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/sessions", s.handleSessions)
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	active := s.sessions.Sessions()
	out := make([]sessionView, 0, len(active))
	ids := make([]string, 0, len(active))
	for _, sess := range active {
		ids = append(ids, sess.GuildID)
		out = append(out, sessionView{
			GuildID:         sess.GuildID,
			PrivateRoomID:   sess.Channels.PrivateRoomID,
			WaitingRoomID:   sess.Channels.WaitingRoomID,
			NoticeChannelID: sess.Channels.NoticeChannelID,
			StartedAt:       sess.StartedAt,
			PendingRequests: s.pending.Pending(sess.GuildID),
		})
	}

	// los nombres son cosméticos: si la DB falla devolvemos igual
	if s.settings != nil && len(ids) > 0 {
		rows, err := s.settings.ListByGuildIDs(r.Context(), ids)
		if err != nil {
			log.Printf("[http] sessions: list settings: %v", err)
		}
		names := make(map[string]string, len(rows))
		for _, st := range rows {
			names[st.GuildID] = st.GuildName
		}
		for i := range out {
			out[i].GuildName = names[out[i].GuildID]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// Run sirve hasta que se cancele ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("🌐 HTTP listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
