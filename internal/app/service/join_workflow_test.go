package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

type workflowHarness struct {
	clock    *fakeClock
	reg      *Registry
	policy   *PolicyStore
	voice    *fakeVoice
	notify   *fakeNotifier
	alert    *fakeAlert
	workflow *JoinWorkflow
	sess     domain.Session
}

func newWorkflowHarness(t *testing.T, opts ...WorkflowOption) *workflowHarness {
	t.Helper()
	h := &workflowHarness{
		clock:  newFakeClock(),
		voice:  newFakeVoice(),
		notify: &fakeNotifier{},
		alert:  &fakeAlert{},
	}
	h.reg = NewRegistry(h.clock.now)
	h.policy = NewPolicyStore(h.reg)

	var seq atomic.Int64
	opts = append([]WorkflowOption{WithRequestIDs(func() string {
		return fmt.Sprintf("req-%d", seq.Add(1))
	})}, opts...)
	h.workflow = NewJoinWorkflow(h.policy, h.voice, h.notify, h.alert, discardLogger(), opts...)

	require.True(t, h.reg.StartSession("g1", testChannels))
	h.sess, _ = h.reg.GetSession("g1")
	h.voice.setOccupants(testChannels.PrivateRoomID, 2)
	return h
}

func (h *workflowHarness) arrive(userID string) ArrivalOutcome {
	return h.workflow.HandleArrival(context.Background(), h.sess, domain.Arrival{GuildID: "g1", UserID: userID, Username: userID})
}

func TestHandleArrival_IgnoredUserIsSilent(t *testing.T) {
	h := newWorkflowHarness(t)
	h.policy.Ignore("g1", "k")

	assert.Equal(t, OutcomeIgnored, h.arrive("k"))
	assert.Zero(t, h.notify.postCount())
	assert.Empty(t, h.voice.moved())
	assert.False(t, h.policy.IsInCooldown("g1", "k"))
}

func TestHandleArrival_EmptyPrivateRoom(t *testing.T) {
	h := newWorkflowHarness(t)
	h.voice.setOccupants(testChannels.PrivateRoomID, 0)

	assert.Equal(t, OutcomeRoomEmpty, h.arrive("k"))
	assert.Zero(t, h.notify.postCount())
	assert.False(t, h.policy.IsInCooldown("g1", "k"), "no cooldown when nobody could answer")
}

func TestHandleArrival_OccupancyErrorFails(t *testing.T) {
	h := newWorkflowHarness(t)
	h.voice.occErr = errors.New("state not ready")

	assert.Equal(t, OutcomeFailed, h.arrive("k"))
	assert.Zero(t, h.notify.postCount())
}

func TestHandleArrival_RememberedUserIsMovedDirectly(t *testing.T) {
	h := newWorkflowHarness(t)
	h.policy.Remember("g1", "k")

	assert.Equal(t, OutcomeAutoMoved, h.arrive("k"))
	assert.Equal(t, []move{{"g1", "k", testChannels.PrivateRoomID}}, h.voice.moved())
	assert.Zero(t, h.notify.postCount())
	assert.False(t, h.policy.IsInCooldown("g1", "k"))
}

func TestHandleArrival_CooldownSuppressesRepeatedRequests(t *testing.T) {
	h := newWorkflowHarness(t)

	require.Equal(t, OutcomeRequested, h.arrive("k"))
	assert.Equal(t, 1, h.notify.postCount())
	assert.Equal(t, 1, h.alert.count())

	h.clock.advance(5 * time.Minute)
	assert.Equal(t, OutcomeCooldown, h.arrive("k"))
	assert.Equal(t, 1, h.notify.postCount())

	h.clock.advance(11 * time.Minute)
	assert.Equal(t, OutcomeRequested, h.arrive("k"))
	assert.Equal(t, 2, h.notify.postCount())
}

func TestHandleArrival_PostFailureClearsCooldown(t *testing.T) {
	h := newWorkflowHarness(t)
	h.notify.postErr = errors.New("missing access")

	assert.Equal(t, OutcomeFailed, h.arrive("k"))
	assert.False(t, h.policy.IsInCooldown("g1", "k"))
	assert.Zero(t, h.workflow.Pending("g1"))
	assert.Zero(t, h.alert.count())

	h.notify.postErr = nil
	assert.Equal(t, OutcomeRequested, h.arrive("k"), "next arrival retries right away")
}

func TestDecide_MoveAndRemember(t *testing.T) {
	h := newWorkflowHarness(t)
	require.Equal(t, OutcomeRequested, h.arrive("k"))
	post := h.notify.lastPost()
	assert.Equal(t, 1, h.workflow.Pending("g1"))

	status, err := h.workflow.Decide(context.Background(), post.requestID, domain.ActionRemember, "j")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRemembered, status)

	assert.Equal(t, []move{{"g1", "k", testChannels.PrivateRoomID}}, h.voice.moved())
	assert.True(t, h.policy.IsRemembered("g1", "k"))
	assert.False(t, h.policy.IsInCooldown("g1", "k"))
	assert.Zero(t, h.workflow.Pending("g1"))

	finals := h.notify.finalizedAll()
	require.Len(t, finals, 1)
	assert.Equal(t, post.ref, finals[0].ref)
	assert.Equal(t, domain.Resolution{Status: domain.RequestRemembered, ActorID: "j"}, finals[0].res)

	// la próxima vez entra directo
	assert.Equal(t, OutcomeAutoMoved, h.arrive("k"))
	assert.Equal(t, 1, h.notify.postCount())
}

func TestDecide_MoveOnlyDoesNotRemember(t *testing.T) {
	h := newWorkflowHarness(t)
	require.Equal(t, OutcomeRequested, h.arrive("k"))

	status, err := h.workflow.Decide(context.Background(), h.notify.lastPost().requestID, domain.ActionMove, "j")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestMoved, status)
	assert.False(t, h.policy.IsRemembered("g1", "k"))
	assert.False(t, h.policy.IsInCooldown("g1", "k"))
	assert.Len(t, h.voice.moved(), 1)
}

func TestDecide_IgnoreSilencesUser(t *testing.T) {
	h := newWorkflowHarness(t)
	require.Equal(t, OutcomeRequested, h.arrive("k"))

	status, err := h.workflow.Decide(context.Background(), h.notify.lastPost().requestID, domain.ActionIgnore, "j")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestIgnored, status)
	assert.Empty(t, h.voice.moved())
	assert.True(t, h.policy.IsIgnored("g1", "k"))

	h.clock.advance(time.Hour)
	assert.Equal(t, OutcomeIgnored, h.arrive("k"))
	assert.Equal(t, 1, h.notify.postCount())
}

func TestDecide_MoveFailureStillResolves(t *testing.T) {
	h := newWorkflowHarness(t)
	require.Equal(t, OutcomeRequested, h.arrive("k"))
	id := h.notify.lastPost().requestID
	h.voice.moveErr = errors.New("user left voice")

	status, err := h.workflow.Decide(context.Background(), id, domain.ActionRemember, "j")
	require.ErrorIs(t, err, ErrMoveFailed)
	assert.Equal(t, domain.RequestRemembered, status)
	assert.True(t, h.policy.IsRemembered("g1", "k"))

	finals := h.notify.finalizedAll()
	require.Len(t, finals, 1)
	assert.True(t, finals[0].res.MoveFailed)

	_, err = h.workflow.Decide(context.Background(), id, domain.ActionMove, "j")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestDecide_UnknownRequestAndAction(t *testing.T) {
	h := newWorkflowHarness(t)

	_, err := h.workflow.Decide(context.Background(), "nope", domain.ActionMove, "j")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	require.Equal(t, OutcomeRequested, h.arrive("k"))
	_, err = h.workflow.Decide(context.Background(), h.notify.lastPost().requestID, domain.Action("kick"), "j")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, 1, h.workflow.Pending("g1"), "bad action leaves the request open")
}

func TestDecide_ExactlyOnceUnderConcurrentClicks(t *testing.T) {
	h := newWorkflowHarness(t)
	require.Equal(t, OutcomeRequested, h.arrive("k"))
	id := h.notify.lastPost().requestID

	actions := []domain.Action{domain.ActionMove, domain.ActionRemember, domain.ActionIgnore}
	const n = 30
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(a domain.Action) {
			defer wg.Done()
			_, err := h.workflow.Decide(context.Background(), id, a, "j")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
				return
			}
			if errors.Is(err, ErrRequestResolved) || errors.Is(err, ErrRequestNotFound) {
				rejected++
			}
		}(actions[i%len(actions)])
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, n-1, rejected)
	assert.Len(t, h.notify.finalizedAll(), 1)
	assert.LessOrEqual(t, len(h.voice.moved()), 1)
}

func TestRequest_ExpiresAfterTimeout(t *testing.T) {
	h := newWorkflowHarness(t, WithTimeout(20*time.Millisecond))
	require.Equal(t, OutcomeRequested, h.arrive("k"))
	id := h.notify.lastPost().requestID

	require.Eventually(t, func() bool {
		return len(h.notify.finalizedAll()) == 1
	}, time.Second, 5*time.Millisecond)

	res := h.notify.finalizedAll()[0].res
	assert.Equal(t, domain.RequestExpired, res.Status)
	assert.False(t, res.SessionEnded)
	assert.Empty(t, res.ActorID)

	assert.Empty(t, h.voice.moved())
	assert.False(t, h.policy.IsRemembered("g1", "k"))
	assert.False(t, h.policy.IsIgnored("g1", "k"))
	assert.True(t, h.policy.IsInCooldown("g1", "k"), "cooldown set on notify survives the expiry")

	_, err := h.workflow.Decide(context.Background(), id, domain.ActionMove, "j")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequest_DecisionBeatsTimer(t *testing.T) {
	h := newWorkflowHarness(t, WithTimeout(30*time.Millisecond))
	require.Equal(t, OutcomeRequested, h.arrive("k"))

	_, err := h.workflow.Decide(context.Background(), h.notify.lastPost().requestID, domain.ActionMove, "j")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	finals := h.notify.finalizedAll()
	require.Len(t, finals, 1)
	assert.Equal(t, domain.RequestMoved, finals[0].res.Status)
}

func TestExpireGuild_OnlyTouchesThatGuild(t *testing.T) {
	h := newWorkflowHarness(t)
	require.True(t, h.reg.StartSession("g2", testChannels))
	other, _ := h.reg.GetSession("g2")

	require.Equal(t, OutcomeRequested, h.arrive("k"))
	require.Equal(t, OutcomeRequested, h.arrive("l"))
	require.Equal(t, OutcomeRequested, h.workflow.HandleArrival(context.Background(), other, domain.Arrival{GuildID: "g2", UserID: "k"}))

	assert.Equal(t, 2, h.workflow.ExpireGuild("g1"))
	assert.Zero(t, h.workflow.Pending("g1"))
	assert.Equal(t, 1, h.workflow.Pending("g2"))

	for _, f := range h.notify.finalizedAll() {
		assert.Equal(t, domain.RequestExpired, f.res.Status)
		assert.True(t, f.res.SessionEnded)
	}
	assert.Zero(t, h.workflow.ExpireGuild("g1"))
}
