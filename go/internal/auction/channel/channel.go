package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auction-live/go/internal/auction/events"
)

var (
	ErrNotConnected             = errors.New("live channel is not connected")
	ErrSendBufferFull           = errors.New("live channel send buffer full")
	ErrReconnectBudgetExhausted = errors.New("live channel reconnect budget exhausted")
)

// Listener receives channel events. Any field may be nil. Callbacks run on
// the channel's goroutines and must not block.
type Listener struct {
	OnConnect    func(reconnect bool)
	OnDisconnect func(err error)
	OnFrame      func(frame events.Frame)
}

// Channel is one physical connection to the authority shared by every
// consumer. It is opened by the first Acquire and closed by the last release.
type Channel struct {
	config Config
	dialer *websocket.Dialer
	clock  clockwork.Clock

	mu            sync.Mutex
	refs          int
	cancel        context.CancelFunc
	done          chan struct{}
	send          chan []byte
	everConnected bool

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64
}

// New creates a channel. Nothing is dialed until Acquire.
func New(config Config, clock clockwork.Clock) *Channel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	config = config.withDefaults()
	return &Channel{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
		},
		clock:     clock,
		listeners: make(map[uint64]Listener),
	}
}

// Subscribe registers l and returns its deregistration func. Deregistering
// never closes the channel.
func (c *Channel) Subscribe(l Listener) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

// Acquire takes a reference on the connection, opening it for the first
// holder. The returned func releases the reference; it is safe to call twice.
func (c *Channel) Acquire() (release func()) {
	c.mu.Lock()
	c.refs++
	if c.refs == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.done = make(chan struct{})
		c.everConnected = false
		go c.run(ctx, c.done)
		log.Info().Str("url", c.config.URL).Msg("live channel opened")
	}
	c.mu.Unlock()

	var once sync.Once
	return func() { once.Do(c.release) }
}

func (c *Channel) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refs--
	if c.refs > 0 {
		return
	}
	c.refs = 0
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	log.Info().Str("url", c.config.URL).Msg("live channel closed by last holder")
}

// Done is closed when the current connection lifecycle has fully stopped.
func (c *Channel) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

// Connected reports whether a connection is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send != nil
}

// Emit sends a fire-and-forget command.
func (c *Channel) Emit(name events.Name, payload interface{}) error {
	return c.EmitWithAck(name, payload, "")
}

// EmitWithAck sends a command tagged with ackID. Commands are never queued
// across a reconnect: while disconnected this fails with ErrNotConnected.
func (c *Channel) EmitWithAck(name events.Name, payload interface{}, ackID string) error {
	frame, err := events.NewFrame(name, payload, ackID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send == nil {
		return ErrNotConnected
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// run dials, serves and redials until ctx is cancelled or the budget runs out.
func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			attempt = 0

			c.mu.Lock()
			reconnect := c.everConnected
			c.everConnected = true
			c.mu.Unlock()

			err = c.serve(ctx, conn, reconnect)
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("url", c.config.URL).Msg("live channel dropped")
			c.notifyDisconnect(err)
		} else {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Int("attempt", attempt).Str("url", c.config.URL).Msg("live channel dial failed")
		}

		attempt++
		if c.config.MaxReconnects >= 0 && attempt > c.config.MaxReconnects {
			log.Error().Int("attempts", attempt-1).Msg("live channel giving up")
			c.notifyDisconnect(ErrReconnectBudgetExhausted)
			return
		}

		delay := Backoff(attempt, c.config.ReconnectDelay, c.config.ReconnectDelayMax)
		log.Debug().Dur("delay", delay).Int("attempt", attempt).Msg("live channel reconnect scheduled")
		if !c.sleep(ctx, delay) {
			return
		}
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx := ctx
	if c.config.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.config.HandshakeTimeout)
		defer cancel()
	}

	conn, resp, err := c.dialer.DialContext(dialCtx, c.config.URL, c.config.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", c.config.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.config.URL, err)
	}
	return conn, nil
}

func (c *Channel) sleep(ctx context.Context, d time.Duration) bool {
	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// serve runs the pumps for one connection and blocks until it ends.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn, reconnect bool) error {
	send := make(chan []byte, c.config.SendBuffer)

	c.mu.Lock()
	c.send = send
	c.mu.Unlock()

	log.Info().Bool("reconnect", reconnect).Str("url", c.config.URL).Msg("live channel connected")
	c.notifyConnect(reconnect)

	connCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- c.writePump(connCtx, conn, send)
	}()
	go func() {
		defer wg.Done()
		errCh <- c.readPump(conn)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
		c.writeClose(conn)
	case err = <-errCh:
	}

	c.mu.Lock()
	c.send = nil
	c.mu.Unlock()

	cancel()
	conn.Close()
	wg.Wait()
	return err
}

// writePump handles sending queued frames and keepalive pings
func (c *Channel) writePump(ctx context.Context, conn *websocket.Conn, send <-chan []byte) error {
	ticker := c.clock.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case message := <-send:
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}

		case <-ticker.Chan():
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("send ping: %w", err)
			}
		}
	}
}

// readPump decodes inbound frames and hands them to listeners
func (c *Channel) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(c.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Msg("unexpected live channel close")
			}
			return fmt.Errorf("read frame: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		var frame events.Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Warn().Err(err).Msg("dropping undecodable frame")
			continue
		}
		c.notifyFrame(frame)
	}
}

func (c *Channel) writeClose(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.config.WriteTimeout))
}

func (c *Channel) snapshotListeners() []Listener {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()

	out := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		out = append(out, l)
	}
	return out
}

func (c *Channel) notifyConnect(reconnect bool) {
	for _, l := range c.snapshotListeners() {
		if l.OnConnect != nil {
			l.OnConnect(reconnect)
		}
	}
}

func (c *Channel) notifyDisconnect(err error) {
	for _, l := range c.snapshotListeners() {
		if l.OnDisconnect != nil {
			l.OnDisconnect(err)
		}
	}
}

func (c *Channel) notifyFrame(frame events.Frame) {
	for _, l := range c.snapshotListeners() {
		if l.OnFrame != nil {
			l.OnFrame(frame)
		}
	}
}
