package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

// Tiempo que un join request espera una decisión antes de expirar.
const RequestTimeout = 900 * time.Second

var (
	ErrRequestNotFound = errors.New("join request not found")
	ErrRequestResolved = errors.New("join request already resolved")
	ErrUnknownAction   = errors.New("unknown join request action")
	ErrMoveFailed      = errors.New("move member failed")
)

// ArrivalOutcome resume qué hizo el workflow con una llegada a la sala de espera.
type ArrivalOutcome string

const (
	OutcomeNoSession ArrivalOutcome = "no_session"
	OutcomeIgnored   ArrivalOutcome = "ignored"
	OutcomeRoomEmpty ArrivalOutcome = "room_empty"
	OutcomeAutoMoved ArrivalOutcome = "auto_moved"
	OutcomeCooldown  ArrivalOutcome = "cooldown"
	OutcomeRequested ArrivalOutcome = "requested"
	OutcomeFailed    ArrivalOutcome = "failed"
)

type joinRequest struct {
	id        string
	who       domain.Arrival
	channels  domain.Channels
	createdAt time.Time

	mu     sync.Mutex
	status domain.RequestStatus
	ref    domain.MessageRef
	timer  *time.Timer
}

// resolve es el compare-and-set pending → terminal. Solo el primero gana.
func (r *joinRequest) resolve(to domain.RequestStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.RequestPending {
		return false
	}
	r.status = to
	if r.timer != nil {
		r.timer.Stop()
	}
	return true
}

func (r *joinRequest) message() domain.MessageRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ref
}

type WorkflowOption func(*JoinWorkflow)

func WithTimeout(d time.Duration) WorkflowOption {
	return func(w *JoinWorkflow) { w.timeout = d }
}

func WithRequestIDs(fn func() string) WorkflowOption {
	return func(w *JoinWorkflow) { w.newID = fn }
}

type JoinWorkflow struct {
	policy *PolicyStore
	voice  VoiceGateway
	notify Notifier
	alert  AlertPlayer
	log    *slog.Logger

	now     func() time.Time
	timeout time.Duration
	newID   func() string

	mu      sync.Mutex
	pending map[string]*joinRequest
}

func NewJoinWorkflow(policy *PolicyStore, voice VoiceGateway, notify Notifier, alert AlertPlayer, log *slog.Logger, opts ...WorkflowOption) *JoinWorkflow {
	if log == nil {
		log = slog.Default()
	}
	w := &JoinWorkflow{
		policy:  policy,
		voice:   voice,
		notify:  notify,
		alert:   alert,
		log:     log,
		now:     policy.reg.now,
		timeout: RequestTimeout,
		newID:   uuid.NewString,
		pending: map[string]*joinRequest{},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// HandleArrival evalúa una llegada a la sala de espera, en orden estricto:
// ignorado, sala privada vacía, recordado, cooldown y recién ahí un join request.
func (w *JoinWorkflow) HandleArrival(ctx context.Context, sess domain.Session, who domain.Arrival) ArrivalOutcome {
	g, u := sess.GuildID, who.UserID
	private := sess.Channels.PrivateRoomID
	log := w.log.With("guild", g, "user", u)

	if w.policy.IsIgnored(g, u) {
		return OutcomeIgnored
	}

	n, err := w.voice.Occupants(g, private)
	if err != nil {
		log.Warn("occupants lookup failed", "err", err)
		return OutcomeFailed
	}
	if n == 0 {
		return OutcomeRoomEmpty
	}

	switch w.policy.Admit(g, u) {
	case VerdictNoSession:
		// la sesión terminó mientras esperábamos el conteo
		return OutcomeNoSession
	case VerdictIgnored:
		return OutcomeIgnored
	case VerdictCooldown:
		return OutcomeCooldown
	case VerdictRemembered:
		if err := w.voice.MoveMember(ctx, g, u, private); err != nil {
			log.Warn("auto move failed", "err", err)
			return OutcomeFailed
		}
		log.Info("remembered user moved")
		return OutcomeAutoMoved
	}

	req := &joinRequest{
		id:        w.newID(),
		who:       who,
		channels:  sess.Channels,
		createdAt: w.now(),
		status:    domain.RequestPending,
	}
	// el lock se mantiene durante el post: un click temprano espera a tener el ref
	req.mu.Lock()
	w.mu.Lock()
	w.pending[req.id] = req
	w.mu.Unlock()

	// Teardown saca la sesión antes de barrer pending: si ya no está, el barrido
	// pudo no ver este request
	if !w.policy.reg.HasSession(g) {
		req.status = domain.RequestExpired
		req.mu.Unlock()
		w.drop(req.id)
		return OutcomeNoSession
	}

	ref, err := w.notify.PostJoinRequest(ctx, sess.Channels, req.id, who)
	if err != nil {
		req.status = domain.RequestExpired
		req.mu.Unlock()
		w.drop(req.id)
		w.policy.ClearCooldown(g, u)
		log.Error("post join request failed", "err", err)
		return OutcomeFailed
	}
	req.ref = ref
	id := req.id
	req.timer = time.AfterFunc(w.timeout, func() { w.expire(id, false) })
	req.mu.Unlock()

	log.Info("join request posted", "request", req.id)
	if w.alert != nil {
		w.alert.PlayAlert(g, private)
	}
	return OutcomeRequested
}

// Decide aplica la primera decisión sobre un request. Las siguientes devuelven
// ErrRequestResolved / ErrRequestNotFound sin tocar nada.
// Si el move falla el request queda cerrado igual y se devuelve ErrMoveFailed.
func (w *JoinWorkflow) Decide(ctx context.Context, requestID string, action domain.Action, actorID string) (domain.RequestStatus, error) {
	to, ok := action.Status()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	req := w.lookup(requestID)
	if req == nil {
		return "", ErrRequestNotFound
	}
	if !req.resolve(to) {
		return "", ErrRequestResolved
	}
	w.drop(requestID)

	g, u := req.who.GuildID, req.who.UserID
	log := w.log.With("guild", g, "user", u, "request", requestID, "action", string(action), "actor", actorID)

	var moveErr error
	switch action {
	case domain.ActionMove:
		w.policy.ClearCooldown(g, u)
		moveErr = w.voice.MoveMember(ctx, g, u, req.channels.PrivateRoomID)
	case domain.ActionRemember:
		w.policy.Remember(g, u)
		w.policy.ClearCooldown(g, u)
		moveErr = w.voice.MoveMember(ctx, g, u, req.channels.PrivateRoomID)
	case domain.ActionIgnore:
		w.policy.Ignore(g, u)
	}

	res := domain.Resolution{Status: to, ActorID: actorID, MoveFailed: moveErr != nil}
	if err := w.notify.FinalizeJoinRequest(ctx, req.message(), req.channels, req.who, res); err != nil {
		log.Warn("finalize join request failed", "err", err)
	}

	if moveErr != nil {
		log.Warn("move failed", "err", moveErr)
		return to, fmt.Errorf("%w: %w", ErrMoveFailed, moveErr)
	}
	log.Info("join request resolved")
	return to, nil
}

// ExpireGuild cierra todos los requests pendientes del guild (fin de sesión).
func (w *JoinWorkflow) ExpireGuild(guildID string) int {
	w.mu.Lock()
	ids := make([]string, 0)
	for id, r := range w.pending {
		if r.who.GuildID == guildID {
			ids = append(ids, id)
		}
	}
	w.mu.Unlock()

	n := 0
	for _, id := range ids {
		if w.expire(id, true) {
			n++
		}
	}
	return n
}

// Pending cuenta los requests abiertos del guild.
func (w *JoinWorkflow) Pending(guildID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, r := range w.pending {
		if r.who.GuildID == guildID {
			n++
		}
	}
	return n
}

func (w *JoinWorkflow) expire(requestID string, sessionEnded bool) bool {
	req := w.lookup(requestID)
	if req == nil || !req.resolve(domain.RequestExpired) {
		return false
	}
	w.drop(requestID)

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	res := domain.Resolution{Status: domain.RequestExpired, SessionEnded: sessionEnded}
	if err := w.notify.FinalizeJoinRequest(ctx, req.message(), req.channels, req.who, res); err != nil {
		w.log.Warn("finalize expired request failed", "guild", req.who.GuildID, "request", requestID, "err", err)
	}
	w.log.Info("join request expired", "guild", req.who.GuildID, "user", req.who.UserID, "request", requestID,
		"age", w.now().Sub(req.createdAt).Round(time.Second))
	return true
}

func (w *JoinWorkflow) lookup(id string) *joinRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending[id]
}

func (w *JoinWorkflow) drop(id string) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}
