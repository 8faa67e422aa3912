package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/metrics"
	"github.com/mcdev12/auction-live/go/internal/auction/store"
	"github.com/mcdev12/auction-live/go/internal/models"
)

type fakeProvider struct {
	mu     sync.Mutex
	mirror store.Mirror
}

func (p *fakeProvider) Current() (store.Mirror, derive.Facts) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mirror, derive.Derive(p.mirror)
}

func (p *fakeProvider) set(doc *models.StateDocument) derive.Facts {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mirror, _ = store.Reduce(p.mirror, store.SnapshotReceived{Doc: doc})
	return derive.Derive(p.mirror)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []AuctionEvent
}

func (p *fakePublisher) Publish(_ context.Context, event AuctionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []AuctionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]AuctionEvent(nil), p.events...)
}

func stateDoc(phase models.Phase, bid int) *models.StateDocument {
	return &models.StateDocument{
		AuctionState: models.AuctionState{
			Phase:         phase,
			CurrentPlayer: &models.Player{ID: "p1", Name: "Ann"},
			CurrentBid:    bid,
		},
		Teams: []models.Team{{ID: "t1", Name: "Tigers", Budget: 1000}},
	}
}

func newTestRelay(t *testing.T, publisher Publisher) (*Service, *fakeProvider, *httptest.Server) {
	t.Helper()
	provider := &fakeProvider{}
	reg := prometheus.NewRegistry()
	metrics.NewPrometheusMetrics(reg).RecordConnect(false)

	svc := NewService(DefaultConfig(), provider, publisher, reg)
	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)
	return svc, provider, srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestStateEndpoint(t *testing.T) {
	_, provider, srv := newTestRelay(t, nil)

	code, _ := get(t, srv.URL+"/api/state")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	provider.set(stateDoc(models.PhaseLive, 150))

	code, body := get(t, srv.URL+"/api/state")
	require.Equal(t, http.StatusOK, code)
	var doc models.StateDocument
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, 150, doc.AuctionState.CurrentBid)
	assert.Equal(t, models.PhaseLive, doc.AuctionState.Phase)
}

func TestViewEndpoint(t *testing.T) {
	_, provider, srv := newTestRelay(t, nil)
	provider.set(stateDoc(models.PhaseLive, 150))

	code, body := get(t, srv.URL+"/api/view")
	require.Equal(t, http.StatusOK, code)

	var facts derive.Facts
	require.NoError(t, json.Unmarshal([]byte(body), &facts))
	assert.Equal(t, 170, facts.NextBid)
	assert.Equal(t, derive.OverlayLive, facts.Overlay.Kind)
}

func TestHealthAndMetrics(t *testing.T) {
	_, _, srv := newTestRelay(t, nil)

	code, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"synced":false`)

	code, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "auction_channel_connects_total")
}

func TestStateEndpointRejectsPost(t *testing.T) {
	_, _, srv := newTestRelay(t, nil)

	resp, err := http.Post(srv.URL+"/api/state", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func readView(t *testing.T, conn *websocket.Conn) ViewMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ViewMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestDisplaySocketReceivesViews(t *testing.T) {
	svc, provider, srv := newTestRelay(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.connectionManager.Start(ctx)

	svc.Observe(provider.set(stateDoc(models.PhaseLive, 100)))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/display"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// the latest view is replayed on connect
	msg := readView(t, conn)
	assert.Equal(t, "view", msg.Type)
	assert.Equal(t, 100, msg.Data.CurrentBid)

	require.Eventually(t, func() bool { return svc.connectionManager.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	svc.Observe(provider.set(stateDoc(models.PhaseLive, 120)))
	msg = readView(t, conn)
	assert.Equal(t, 120, msg.Data.CurrentBid)
}

func TestLotWatcherPublishesTransitions(t *testing.T) {
	pub := &fakePublisher{}
	w := NewLotWatcher(pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	provider := &fakeProvider{}
	w.Observe(provider.set(stateDoc(models.PhaseLive, 100)))
	w.Observe(provider.set(stateDoc(models.PhaseLive, 120)))

	sold := stateDoc(models.PhaseSold, 120)
	sold.AuctionState.SoldPlayers = []models.SoldRecord{{
		Player: models.Player{ID: "p1", Name: "Ann"},
		Team:   "Tigers",
		Price:  120,
	}}
	w.Observe(provider.set(sold))
	w.Observe(provider.set(sold))

	unsold := stateDoc(models.PhaseUnsold, 0)
	unsold.AuctionState.CurrentPlayer = &models.Player{ID: "p2", Name: "Bob"}
	unsold.AuctionState.SoldPlayers = sold.AuctionState.SoldPlayers
	w.Observe(provider.set(unsold))

	require.Eventually(t, func() bool { return len(pub.published()) == 4 }, time.Second, 5*time.Millisecond)
	events := pub.published()

	assert.Equal(t, EventPhase, events[0].EventType)
	assert.Equal(t, PhasePayload{From: models.PhaseLive, To: models.PhaseSold}, events[0].Payload)

	assert.Equal(t, EventLotSold, events[1].EventType)
	assert.Equal(t, "sold-p1-120", events[1].ID)
	soldPayload := events[1].Payload.(LotSoldPayload)
	assert.Equal(t, "Ann", soldPayload.Player.Name)
	require.NotNil(t, soldPayload.Team)
	assert.Equal(t, "Tigers", soldPayload.Team.Name)

	assert.Equal(t, EventPhase, events[2].EventType)
	assert.Equal(t, EventLotUnsold, events[3].EventType)
	assert.Equal(t, LotUnsoldPayload{PlayerName: "Bob"}, events[3].Payload)
}

func TestLotWatcherPublishesEachLotOnce(t *testing.T) {
	pub := &fakePublisher{}
	w := NewLotWatcher(pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	saleA := []models.SoldRecord{{Player: models.Player{ID: "p1", Name: "Ann"}, Team: "Tigers", Price: 120}}
	doc := func(phase models.Phase, current *models.Player, sales []models.SoldRecord) *models.StateDocument {
		d := stateDoc(phase, 0)
		d.AuctionState.CurrentPlayer = current
		d.AuctionState.SoldPlayers = sales
		return d
	}
	ann := &models.Player{ID: "p1", Name: "Ann"}
	bob := &models.Player{ID: "p2", Name: "Bob"}

	provider := &fakeProvider{}
	for _, d := range []*models.StateDocument{
		doc(models.PhaseLive, ann, nil),
		doc(models.PhaseSold, ann, saleA),
		doc(models.PhaseIdle, nil, saleA),
		doc(models.PhaseLive, bob, saleA),
		doc(models.PhaseUnsold, bob, saleA),
		doc(models.PhaseIdle, nil, saleA),
	} {
		w.Observe(provider.set(d))
	}

	// five phase changes plus one sold and one unsold
	require.Eventually(t, func() bool { return len(pub.published()) == 7 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	var lots []string
	for _, e := range pub.published() {
		if e.EventType != EventPhase {
			lots = append(lots, e.EventType)
		}
	}
	assert.Equal(t, []string{EventLotSold, EventLotUnsold}, lots)
}

func TestEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	data, err := encodeEnvelope(AuctionEvent{
		ID:        "sold-p1-120",
		EventType: EventLotSold,
		Payload:   LotSoldPayload{Player: models.Player{ID: "p1", Name: "Ann"}, Price: 120},
	}, at)
	require.NoError(t, err)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "sold-p1-120", env["eventId"])
	assert.Equal(t, EventLotSold, env["eventType"])
	assert.Equal(t, "2026-03-01T18:00:00Z", env["timestamp"])
	assert.Equal(t, 120.0, env["payload"].(map[string]interface{})["price"])

	assert.Equal(t, "auction.lot.sold", Subject("auction", EventLotSold))
	sc := streamConfig(DefaultJetStreamConfig())
	assert.Equal(t, []string{"auction.>"}, sc.Subjects)
	assert.True(t, isStreamConfigEqual(sc, sc))
}
