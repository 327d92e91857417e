package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

var testChannels = domain.Channels{
	PrivateRoomID:   "private-1",
	WaitingRoomID:   "waiting-1",
	NoticeChannelID: "notice-1",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type move struct {
	guildID, userID, channelID string
}

type fakeVoice struct {
	mu        sync.Mutex
	occupants map[string]int
	occErr    error
	moveErr   error
	moves     []move
	missing   map[string][]domain.Capability
	capErr    error
	// onCapCheck corre antes de cada chequeo de permisos, fuera del lock
	onCapCheck func()
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{occupants: map[string]int{}, missing: map[string][]domain.Capability{}}
}

func (f *fakeVoice) Occupants(guildID, channelID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.occErr != nil {
		return 0, f.occErr
	}
	return f.occupants[channelID], nil
}

func (f *fakeVoice) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, move{guildID, userID, channelID})
	return f.moveErr
}

func (f *fakeVoice) MissingCapabilities(guildID, channelID string, want []domain.Capability) ([]domain.Capability, error) {
	if f.onCapCheck != nil {
		f.onCapCheck()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capErr != nil {
		return nil, f.capErr
	}
	return f.missing[channelID], nil
}

func (f *fakeVoice) setOccupants(channelID string, n int) {
	f.mu.Lock()
	f.occupants[channelID] = n
	f.mu.Unlock()
}

func (f *fakeVoice) moved() []move {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]move(nil), f.moves...)
}

type postedRequest struct {
	requestID string
	who       domain.Arrival
	ref       domain.MessageRef
}

type finalized struct {
	ref domain.MessageRef
	who domain.Arrival
	res domain.Resolution
}

type fakeNotifier struct {
	mu      sync.Mutex
	postErr error
	seq     int
	posts   []postedRequest
	finals  []finalized
	started []domain.Channels
	ended   []domain.Channels
}

func (f *fakeNotifier) PostJoinRequest(ctx context.Context, ch domain.Channels, requestID string, who domain.Arrival) (domain.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return domain.MessageRef{}, f.postErr
	}
	f.seq++
	ref := domain.MessageRef{ChannelID: ch.NoticeChannelID, MessageID: fmt.Sprintf("msg-%d", f.seq)}
	f.posts = append(f.posts, postedRequest{requestID: requestID, who: who, ref: ref})
	return ref, nil
}

func (f *fakeNotifier) FinalizeJoinRequest(ctx context.Context, ref domain.MessageRef, ch domain.Channels, who domain.Arrival, res domain.Resolution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, finalized{ref: ref, who: who, res: res})
	return nil
}

func (f *fakeNotifier) PostSessionStarted(ctx context.Context, ch domain.Channels) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, ch)
	return nil
}

func (f *fakeNotifier) PostSessionEnded(ctx context.Context, ch domain.Channels) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, ch)
	return nil
}

func (f *fakeNotifier) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakeNotifier) lastPost() postedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[len(f.posts)-1]
}

func (f *fakeNotifier) finalizedAll() []finalized {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finalized(nil), f.finals...)
}

func (f *fakeNotifier) counts() (started, ended int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started), len(f.ended)
}

type fakeAlert struct {
	mu    sync.Mutex
	plays []string
}

func (f *fakeAlert) PlayAlert(guildID, channelID string) {
	f.mu.Lock()
	f.plays = append(f.plays, channelID)
	f.mu.Unlock()
}

func (f *fakeAlert) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

type fakeSettings struct {
	mu      sync.Mutex
	rows    map[string]domain.GuildSettings
	err     error
	updates int
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{rows: map[string]domain.GuildSettings{}}
}

func (f *fakeSettings) Get(ctx context.Context, guildID string) (domain.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.GuildSettings{}, f.err
	}
	if st, ok := f.rows[guildID]; ok {
		return st, nil
	}
	return domain.GuildSettings{GuildID: guildID}, nil
}

func (f *fakeSettings) Update(ctx context.Context, guildID string, p domain.GuildSettingsPatch) (domain.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.GuildSettings{}, f.err
	}
	st := f.rows[guildID]
	st.GuildID = guildID
	if p.GuildName != nil {
		st.GuildName = *p.GuildName
	}
	if p.PrivateRoomID != nil {
		st.PrivateRoomID = *p.PrivateRoomID
	}
	if p.WaitingRoomID != nil {
		st.WaitingRoomID = *p.WaitingRoomID
	}
	if p.NoticeChannelID != nil {
		st.NoticeChannelID = *p.NoticeChannelID
	}
	if p.Enabled != nil {
		st.Enabled = *p.Enabled
	}
	f.rows[guildID] = st
	f.updates++
	return st, nil
}

func (f *fakeSettings) Delete(ctx context.Context, guildID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[guildID]
	delete(f.rows, guildID)
	return ok, nil
}

func (f *fakeSettings) put(st domain.GuildSettings) {
	f.mu.Lock()
	f.rows[st.GuildID] = st
	f.mu.Unlock()
}
