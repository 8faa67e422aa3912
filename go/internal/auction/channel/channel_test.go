package channel

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auction-live/go/internal/auction/events"
)

const waitFor = 2 * time.Second

// authority is a minimal stand-in for the authority's websocket endpoint.
type authority struct {
	srv      *httptest.Server
	conns    chan *websocket.Conn
	received chan events.Frame
	closed   chan struct{}
	onOpen   func(conn *websocket.Conn)
}

func newAuthority(t *testing.T, onOpen func(conn *websocket.Conn)) *authority {
	a := &authority{
		conns:    make(chan *websocket.Conn, 8),
		received: make(chan events.Frame, 32),
		closed:   make(chan struct{}, 8),
		onOpen:   onOpen,
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		a.conns <- conn
		if a.onOpen != nil {
			a.onOpen(conn)
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				a.closed <- struct{}{}
				return
			}
			var frame events.Frame
			if json.Unmarshal(msg, &frame) == nil {
				a.received <- frame
			}
		}
	}))
	t.Cleanup(a.srv.Close)
	return a
}

func (a *authority) url() string {
	return "ws" + strings.TrimPrefix(a.srv.URL, "http") + "/ws"
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url)
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.ReconnectDelayMax = 20 * time.Millisecond
	cfg.HandshakeTimeout = time.Second
	return cfg
}

// recorder collects listener callbacks.
type recorder struct {
	mu        sync.Mutex
	connects  []bool
	frames    []events.Frame
	drops     []error
	connected chan bool
	dropped   chan error
	frameCh   chan events.Frame
}

func newRecorder() *recorder {
	return &recorder{
		connected: make(chan bool, 8),
		dropped:   make(chan error, 8),
		frameCh:   make(chan events.Frame, 32),
	}
}

func (r *recorder) listener() Listener {
	return Listener{
		OnConnect: func(reconnect bool) {
			r.mu.Lock()
			r.connects = append(r.connects, reconnect)
			r.mu.Unlock()
			r.connected <- reconnect
		},
		OnDisconnect: func(err error) {
			r.mu.Lock()
			r.drops = append(r.drops, err)
			r.mu.Unlock()
			r.dropped <- err
		},
		OnFrame: func(frame events.Frame) {
			r.mu.Lock()
			r.frames = append(r.frames, frame)
			r.mu.Unlock()
			r.frameCh <- frame
		},
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for value")
		var zero T
		return zero
	}
}

func TestChannelDeliversFrames(t *testing.T) {
	a := newAuthority(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"timerUpdate","data":{"remaining":7}}`))
	})

	ch := New(testConfig(a.url()), clockwork.NewRealClock())
	rec := newRecorder()
	unsubscribe := ch.Subscribe(rec.listener())
	defer unsubscribe()

	release := ch.Acquire()
	defer release()

	assert.False(t, receive(t, rec.connected), "first connection is not a reconnect")

	frame := receive(t, rec.frameCh)
	assert.Equal(t, events.TimerUpdate, frame.Event)
	payload, err := events.ParsePayload(frame)
	require.NoError(t, err)
	assert.Equal(t, events.TimerPayload{Remaining: 7}, payload)
}

func TestChannelReconnectsAfterDrop(t *testing.T) {
	a := newAuthority(t, nil)

	ch := New(testConfig(a.url()), clockwork.NewRealClock())
	rec := newRecorder()
	ch.Subscribe(rec.listener())

	release := ch.Acquire()
	defer release()

	assert.False(t, receive(t, rec.connected))
	first := receive(t, a.conns)
	first.Close()

	require.Error(t, receive(t, rec.dropped))
	assert.True(t, receive(t, rec.connected), "second connection is a reconnect")
	receive(t, a.conns)
}

func TestChannelEmit(t *testing.T) {
	a := newAuthority(t, nil)

	ch := New(testConfig(a.url()), clockwork.NewRealClock())
	rec := newRecorder()
	ch.Subscribe(rec.listener())

	require.ErrorIs(t, ch.Emit(events.AdminSold, nil), ErrNotConnected)

	release := ch.Acquire()
	defer release()
	receive(t, rec.connected)

	require.NoError(t, ch.Emit(events.PlaceBid, events.PlaceBidPayload{TeamID: "t1", Amount: 210}))
	require.NoError(t, ch.EmitWithAck(events.AdminAddPlayer, events.PlayerFields{Name: "Asha"}, "ack-1"))

	bid := receive(t, a.received)
	assert.Equal(t, events.PlaceBid, bid.Event)
	assert.JSONEq(t, `{"teamId":"t1","amount":210}`, string(bid.Data))

	add := receive(t, a.received)
	assert.Equal(t, events.AdminAddPlayer, add.Event)
	assert.Equal(t, "ack-1", add.AckID)
}

func TestChannelRefCounting(t *testing.T) {
	a := newAuthority(t, nil)

	ch := New(testConfig(a.url()), clockwork.NewRealClock())
	rec := newRecorder()
	ch.Subscribe(rec.listener())

	releaseA := ch.Acquire()
	releaseB := ch.Acquire()
	receive(t, rec.connected)
	receive(t, a.conns)

	releaseA()
	releaseA() // second call is a no-op
	assert.True(t, ch.Connected())

	releaseB()
	select {
	case <-ch.Done():
	case <-time.After(waitFor):
		t.Fatal("channel did not stop after last release")
	}
	receive(t, a.closed)
	assert.False(t, ch.Connected())

	select {
	case <-a.conns:
		t.Fatal("only one physical connection should have been opened")
	default:
	}
}

func TestChannelUnsubscribeKeepsConnection(t *testing.T) {
	a := newAuthority(t, nil)

	ch := New(testConfig(a.url()), clockwork.NewRealClock())
	rec := newRecorder()
	unsubscribe := ch.Subscribe(rec.listener())

	release := ch.Acquire()
	defer release()
	receive(t, rec.connected)
	conn := receive(t, a.conns)

	unsubscribe()
	assert.True(t, ch.Connected())

	conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"bidFlash"}`))
	select {
	case <-rec.frameCh:
		t.Fatal("unsubscribed listener received a frame")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelReconnectBudget(t *testing.T) {
	a := newAuthority(t, nil)
	url := a.url()
	a.srv.Close()

	cfg := testConfig(url)
	cfg.MaxReconnects = 2
	ch := New(cfg, clockwork.NewRealClock())
	rec := newRecorder()
	ch.Subscribe(rec.listener())

	release := ch.Acquire()
	defer release()

	err := receive(t, rec.dropped)
	assert.True(t, errors.Is(err, ErrReconnectBudgetExhausted))

	select {
	case <-ch.Done():
	case <-time.After(waitFor):
		t.Fatal("channel kept running after exhausting its budget")
	}
}

func TestBackoff(t *testing.T) {
	base := time.Second
	max := 5 * time.Second
	assert.Equal(t, time.Second, Backoff(0, base, max))
	assert.Equal(t, time.Second, Backoff(1, base, max))
	assert.Equal(t, 2*time.Second, Backoff(2, base, max))
	assert.Equal(t, 4*time.Second, Backoff(3, base, max))
	assert.Equal(t, 5*time.Second, Backoff(4, base, max))
	assert.Equal(t, 5*time.Second, Backoff(40, base, max))
}
