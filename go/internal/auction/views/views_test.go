package views

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auction-live/go/internal/auction/channel"
	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/dispatch"
	"github.com/mcdev12/auction-live/go/internal/auction/engine"
	"github.com/mcdev12/auction-live/go/internal/auction/events"
	"github.com/mcdev12/auction-live/go/internal/auction/feedback"
	"github.com/mcdev12/auction-live/go/internal/auction/store"
	"github.com/mcdev12/auction-live/go/internal/models"
)

type sentFrame struct {
	name  events.Name
	data  string
	ackID string
}

type recordingEmitter struct {
	mu        sync.Mutex
	connected bool
	frames    []sentFrame
}

func (r *recordingEmitter) Emit(name events.Name, payload interface{}) error {
	return r.EmitWithAck(name, payload, "")
}

func (r *recordingEmitter) EmitWithAck(name events.Name, payload interface{}, ackID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return channel.ErrNotConnected
	}
	data, _ := json.Marshal(payload)
	r.frames = append(r.frames, sentFrame{name: name, data: string(data), ackID: ackID})
	return nil
}

func (r *recordingEmitter) last() sentFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return sentFrame{}
	}
	return r.frames[len(r.frames)-1]
}

// fakeSource stands in for the engine: it reduces events synchronously.
type fakeSource struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	emitter    *recordingEmitter

	mu        sync.Mutex
	listeners map[int]engine.Listener
	next      int
}

func newFakeSource(clock clockwork.Clock) *fakeSource {
	em := &recordingEmitter{connected: true}
	return &fakeSource{
		store:      store.New(),
		emitter:    em,
		dispatcher: dispatch.New(em, dispatch.WithClock(clock)),
		listeners:  make(map[int]engine.Listener),
	}
}

func (s *fakeSource) Subscribe(l engine.Listener) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *fakeSource) Current() (store.Mirror, derive.Facts) {
	m := s.store.Current()
	return m, derive.Derive(m)
}

func (s *fakeSource) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

func (s *fakeSource) snapshot() []engine.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func (s *fakeSource) apply(ev store.Event) {
	m, outcome := s.store.Apply(ev)
	if outcome != store.Applied {
		return
	}
	f := derive.Derive(m)
	for _, l := range s.snapshot() {
		if l.OnState != nil {
			l.OnState(m, f)
		}
	}
}

func (s *fakeSource) notify(n engine.Notification) {
	for _, l := range s.snapshot() {
		if l.OnNotification != nil {
			l.OnNotification(n)
		}
	}
}

func (s *fakeSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

type recordingSink struct {
	mu     sync.Mutex
	alarms []int
	toasts []*feedback.Toast
	flash  []bool
}

func (r *recordingSink) Alarm(remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alarms = append(r.alarms, remaining)
}

func (r *recordingSink) Flash(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flash = append(r.flash, on)
}

func (r *recordingSink) Toast(t *feedback.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recordingSink) alarmCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alarms)
}

func liveDoc(bid int, leader *models.Team) *models.StateDocument {
	return &models.StateDocument{
		AuctionState: models.AuctionState{
			Phase:         models.PhaseLive,
			CurrentPlayer: &models.Player{ID: "p1", Name: "Ann"},
			CurrentBid:    bid,
			LeadingTeam:   leader,
		},
		Teams: []models.Team{
			{ID: "t1", Name: "Tigers", Budget: 1000, Spent: 200},
			{ID: "t2", Name: "Lions", Budget: 1000, Spent: 100},
		},
		Players: rosterOf(23),
		Config:  models.Config{ThresholdBid: 200, HighIncrement: 20, LowIncrement: 10},
	}
}

func rosterOf(n int) []models.Player {
	players := make([]models.Player, n)
	for i := range players {
		players[i] = models.Player{ID: models.ID(fmt.Sprintf("p%d", i+1)), Name: fmt.Sprintf("Player %d", i+1)}
	}
	return players
}

func TestAdminAlarmSequence(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := newFakeSource(clock)
	sink := &recordingSink{}
	v := NewAdminView(src, WithClock(clock), WithSink(sink))
	v.Mount()
	defer v.Unmount()

	src.apply(store.PushReceived{Doc: liveDoc(100, nil)})
	for _, r := range []int{5, 5, 4, 3, 2, 1, 0} {
		src.apply(store.TimerTick{Remaining: r})
	}
	assert.Equal(t, 5, sink.alarmCount())

	// identical pushes do not re-fire
	src.apply(store.PushReceived{Doc: liveDoc(100, nil)})
	src.apply(store.PushReceived{Doc: liveDoc(100, nil)})
	assert.Equal(t, 5, sink.alarmCount())
}

func TestAdminNotifications(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := newFakeSource(clock)
	v := NewAdminView(src, WithClock(clock))
	v.Mount()
	defer v.Unmount()

	src.notify(engine.Notification{Kind: engine.NotifyBidFlash})
	assert.True(t, v.Flashing())

	src.notify(engine.Notification{Kind: engine.NotifyBidError, Message: "Bid too low"})
	toast, ok := v.Toast()
	require.True(t, ok)
	assert.Equal(t, "Bid too low", toast.Message)

	src.notify(engine.Notification{Kind: engine.NotifyBackupImported})
	toast, ok = v.Toast()
	require.True(t, ok)
	assert.Equal(t, feedback.BackupImportedMessage, toast.Message)
}

func TestAdminRosterPaging(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := newFakeSource(clock)
	v := NewAdminView(src, WithClock(clock))
	v.Mount()
	defer v.Unmount()

	src.apply(store.SnapshotReceived{Doc: liveDoc(0, nil)})

	page := v.Roster()
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 10)

	v.SetPage(9)
	page = v.Roster()
	assert.Equal(t, 3, page.Page)
	assert.Len(t, page.Items, 3)

	v.Search("player 2")
	page = v.Roster()
	assert.Equal(t, 1, page.Page)
	// Player 2, Player 20..23
	assert.Equal(t, 5, page.Total)
}

func TestAdminAddPlayerAckToast(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := newFakeSource(clock)
	v := NewAdminView(src, WithClock(clock))
	v.Mount()
	defer v.Unmount()

	require.NoError(t, v.AddPlayer(events.PlayerFields{Name: "New", BasePrice: 50}))
	frame := src.emitter.last()
	assert.Equal(t, events.AdminAddPlayer, frame.name)
	require.NotEmpty(t, frame.ackID)

	src.dispatcher.HandleAck(frame.ackID, events.AckPayload{OK: false, Error: "duplicate"})
	toast, ok := v.Toast()
	require.True(t, ok)
	assert.Equal(t, feedback.ToastError, toast.Kind)
	assert.Equal(t, "duplicate", toast.Message)
}

func TestAdminAddPlayerTimeoutToast(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := newFakeSource(clock)
	v := NewAdminView(src, WithClock(clock))
	v.Mount()
	defer v.Unmount()

	require.NoError(t, v.AddPlayer(events.PlayerFields{Name: "New"}))
	clock.Advance(dispatch.DefaultAckTimeout)

	require.Eventually(t, func() bool {
		toast, ok := v.Toast()
		return ok && toast.Message == dispatch.ErrAckTimeout.Error()
	}, time.Second, 5*time.Millisecond)
}

func TestBidderFlow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := newFakeSource(clock)
	v := NewBidderView(src, WithClock(clock))
	v.Mount()
	defer v.Unmount()

	assert.ErrorIs(t, v.Bid(), dispatch.ErrNoTeam)

	src.apply(store.SnapshotReceived{Doc: liveDoc(190, nil)})
	assert.ErrorIs(t, v.SelectTeam("nope"), ErrUnknownTeam)
	require.NoError(t, v.SelectTeam("t1"))

	assert.True(t, v.CanBid())
	assert.False(t, v.IsLeading())
	assert.Equal(t, 800, v.Remaining())

	require.NoError(t, v.Bid())
	frame := src.emitter.last()
	assert.Equal(t, events.PlaceBid, frame.name)
	assert.JSONEq(t, `{"teamId":"t1","amount":210}`, frame.data)

	src.apply(store.PushReceived{Doc: liveDoc(210, &models.Team{ID: "t1", Name: "Tigers"})})
	assert.True(t, v.IsLeading())

	standings := v.Standings()
	require.Len(t, standings, 2)
	assert.Equal(t, models.ID("t2"), standings[0].Team.ID)

	src.notify(engine.Notification{Kind: engine.NotifyBidError, Message: "Insufficient budget"})
	toast, ok := v.Toast()
	require.True(t, ok)
	assert.Equal(t, "Insufficient budget", toast.Message)
}

func TestBidderNotLive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := newFakeSource(clock)
	v := NewBidderView(src, WithClock(clock))
	v.Mount()
	defer v.Unmount()

	d := liveDoc(100, nil)
	d.AuctionState.Phase = models.PhaseSold
	src.apply(store.SnapshotReceived{Doc: d})
	require.NoError(t, v.SelectTeam("t1"))

	assert.False(t, v.CanBid())
	assert.ErrorIs(t, v.Bid(), dispatch.ErrNotLive)
}

func TestDisplayPrefersAnnouncement(t *testing.T) {
	src := newFakeSource(clockwork.NewFakeClock())
	var concluded []derive.Overlay
	v := NewDisplayView(src, WithHooks(Hooks{
		Edges: feedback.EdgeHandlers{LotConcluded: func(o derive.Overlay) { concluded = append(concluded, o) }},
	}))
	v.Mount()
	defer v.Unmount()

	src.apply(store.PushReceived{Doc: liveDoc(300, nil)})
	assert.Equal(t, derive.OverlayLive, v.Overlay().Kind)

	src.apply(store.SaleAnnounced{Sale: models.SaleAnnouncement{
		Player: models.Player{ID: "p9", Name: "Zed"},
		Team:   &models.Team{Name: "Lions"},
		Price:  450,
	}})

	sold := liveDoc(300, nil)
	sold.AuctionState.Phase = models.PhaseSold
	sold.AuctionState.SoldPlayers = []models.SoldRecord{{Player: models.Player{ID: "p1", Name: "A"}, Team: "X", Price: 300}}
	src.apply(store.PushReceived{Doc: sold})

	overlay := v.Overlay()
	require.Equal(t, derive.OverlaySold, overlay.Kind)
	assert.Equal(t, "Zed", overlay.Sold.Player.Name)
	assert.Equal(t, 450, overlay.Sold.Price)
	require.Len(t, concluded, 1)
}

func TestUnmountReleasesOnlyListener(t *testing.T) {
	src := newFakeSource(clockwork.NewFakeClock())
	a := NewDisplayView(src)
	b := NewBidderView(src)

	a.Mount()
	a.Mount()
	b.Mount()
	assert.Equal(t, 2, src.count())

	a.Unmount()
	a.Unmount()
	assert.Equal(t, 1, src.count())
	assert.False(t, a.Mounted())
	assert.True(t, b.Mounted())

	b.Unmount()
	assert.Equal(t, 0, src.count())
}
