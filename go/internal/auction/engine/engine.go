package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auction-live/go/internal/auction/channel"
	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/dispatch"
	"github.com/mcdev12/auction-live/go/internal/auction/events"
	"github.com/mcdev12/auction-live/go/internal/auction/metrics"
	"github.com/mcdev12/auction-live/go/internal/auction/store"
	"github.com/mcdev12/auction-live/go/internal/models"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	defaultInboxSize    = 64
)

// Fetcher retrieves the full state document. *clients.AuctionClient satisfies it.
type Fetcher interface {
	FetchState(ctx context.Context) (*models.StateDocument, error)
}

// Channel is the shared live connection. *channel.Channel satisfies it.
type Channel interface {
	dispatch.Emitter
	Subscribe(l channel.Listener) (unsubscribe func())
	Acquire() (release func())
}

// Listener receives engine output. Callbacks run on the engine loop and must
// not block. Either field may be nil.
type Listener struct {
	OnState        func(m store.Mirror, f derive.Facts)
	OnNotification func(n Notification)
}

// Engine owns the state store. A single goroutine applies every write, in
// the order events arrived.
type Engine struct {
	fetcher      Fetcher
	ch           Channel
	store        *store.Store
	dispatcher   *dispatch.Dispatcher
	metrics      metrics.MetricsCollector
	clock        clockwork.Clock
	fetchTimeout time.Duration

	inbox chan inboxMsg

	tokenMu sync.RWMutex
	token   string

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	release     func()
	unsubscribe func()
	fetches     sync.WaitGroup
}

type Option func(*options)

type options struct {
	clock        clockwork.Clock
	metrics      metrics.MetricsCollector
	fetchTimeout time.Duration
	ackTimeout   time.Duration
	inboxSize    int
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithMetrics(m metrics.MetricsCollector) Option {
	return func(o *options) { o.metrics = m }
}

func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

func WithAckTimeout(d time.Duration) Option {
	return func(o *options) { o.ackTimeout = d }
}

func WithInboxSize(n int) Option {
	return func(o *options) { o.inboxSize = n }
}

func New(fetcher Fetcher, ch Channel, opts ...Option) *Engine {
	o := options{
		clock:        clockwork.NewRealClock(),
		metrics:      metrics.NoOpMetricsCollector{},
		fetchTimeout: DefaultFetchTimeout,
		ackTimeout:   dispatch.DefaultAckTimeout,
		inboxSize:    defaultInboxSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{
		fetcher: fetcher,
		ch:      ch,
		store:   store.New(),
		dispatcher: dispatch.New(ch,
			dispatch.WithClock(o.clock),
			dispatch.WithAckTimeout(o.ackTimeout),
			dispatch.WithMetrics(o.metrics),
		),
		metrics:      o.metrics,
		clock:        o.clock,
		fetchTimeout: o.fetchTimeout,
		inbox:        make(chan inboxMsg, o.inboxSize),
		listeners:    make(map[uint64]Listener),
	}
}

// Start subscribes to the channel, opens it and performs the startup fetch.
func (e *Engine) Start(parent context.Context) {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.done != nil {
		return
	}

	e.ctx, e.cancel = context.WithCancel(parent)
	e.done = make(chan struct{})

	e.unsubscribe = e.ch.Subscribe(channel.Listener{
		OnConnect:    func(reconnect bool) { e.enqueue(channelConnected{reconnect: reconnect}) },
		OnDisconnect: func(err error) { e.enqueue(channelDisconnected{err: err}) },
		OnFrame:      func(frame events.Frame) { e.enqueue(frameReceived{frame: frame}) },
	})
	e.release = e.ch.Acquire()

	go e.loop(e.ctx, e.done)
	e.fetch(e.ctx, "startup")

	log.Info().Msg("Auction engine started")
}

// Stop releases the channel and waits for the loop to exit.
func (e *Engine) Stop() {
	e.lifecycleMu.Lock()
	if e.done == nil {
		e.lifecycleMu.Unlock()
		return
	}
	cancel, done := e.cancel, e.done
	unsubscribe, release := e.unsubscribe, e.release
	e.lifecycleMu.Unlock()

	unsubscribe()
	release()
	cancel()
	<-done
	e.fetches.Wait()

	log.Info().Msg("Auction engine stopped")
}

// Done is closed when the loop exits.
func (e *Engine) Done() <-chan struct{} {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	return e.done
}

// Dispatcher returns the shared command dispatcher.
func (e *Engine) Dispatcher() *dispatch.Dispatcher {
	return e.dispatcher
}

// Current returns the mirror and its derived facts.
func (e *Engine) Current() (store.Mirror, derive.Facts) {
	m := e.store.Current()
	return m, derive.Derive(m)
}

// SetToken records the admin session credential. It is re-asserted on every
// connection and sent immediately when the channel is up.
func (e *Engine) SetToken(token string) error {
	e.tokenMu.Lock()
	e.token = token
	e.tokenMu.Unlock()

	if token == "" {
		return nil
	}
	err := e.dispatcher.Authenticate(token)
	if errors.Is(err, channel.ErrNotConnected) {
		return nil
	}
	return err
}

func (e *Engine) Token() string {
	e.tokenMu.RLock()
	defer e.tokenMu.RUnlock()
	return e.token
}

// Subscribe registers l until the returned func is called.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.listenersMu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.listenersMu.Lock()
			delete(e.listeners, id)
			e.listenersMu.Unlock()
		})
	}
}

// ListenerCount reports how many listeners are registered.
func (e *Engine) ListenerCount() int {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	return len(e.listeners)
}

func (e *Engine) enqueue(msg inboxMsg) {
	e.lifecycleMu.Lock()
	ctx := e.ctx
	e.lifecycleMu.Unlock()
	if ctx == nil {
		return
	}

	select {
	case e.inbox <- msg:
	case <-ctx.Done():
	}
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case m := <-e.inbox:
			switch msg := m.(type) {
			case frameReceived:
				e.handleFrame(msg.frame)

			case channelConnected:
				e.handleConnect(ctx, msg.reconnect)

			case channelDisconnected:
				e.metrics.RecordDisconnect()
				log.Warn().Err(msg.err).Msg("Live channel disconnected, view may be stale")

			case fetchCompleted:
				if msg.err != nil {
					log.Warn().Err(msg.err).Str("reason", msg.reason).Msg("Snapshot fetch failed, keeping previous state")
					break
				}
				e.apply(store.SnapshotReceived{Doc: msg.doc}, "snapshot")
			}
		}
	}
}

func (e *Engine) handleConnect(ctx context.Context, reconnect bool) {
	e.metrics.RecordConnect(reconnect)
	log.Info().Bool("reconnect", reconnect).Msg("Live channel connected")

	if reconnect {
		e.apply(store.ChannelReconnected{}, "channel")
	}
	if token := e.Token(); token != "" {
		if err := e.dispatcher.Authenticate(token); err != nil {
			log.Warn().Err(err).Msg("Failed to re-assert admin session")
		}
	}
	if reconnect {
		e.fetch(ctx, "reconnect")
	} else {
		e.fetch(ctx, "connect")
	}
}

func (e *Engine) handleFrame(frame events.Frame) {
	payload, err := events.ParsePayload(frame)
	if err != nil {
		log.Warn().Err(err).Str("event", string(frame.Event)).Msg("Dropping malformed frame")
		return
	}

	switch p := payload.(type) {
	case models.StateDocument:
		doc := p
		e.apply(store.PushReceived{Doc: &doc}, "push")

	case events.TimerPayload:
		e.apply(store.TimerTick{Remaining: p.Remaining}, "timer")

	case models.SaleAnnouncement:
		e.apply(store.SaleAnnounced{Sale: p}, "sale")

	case events.BidErrorPayload:
		e.notify(Notification{Kind: NotifyBidError, Message: p.Msg})

	case events.AckPayload:
		e.dispatcher.HandleAck(frame.AckID, p)

	case events.Empty:
		switch frame.Event {
		case events.BackupImported:
			e.notify(Notification{Kind: NotifyBackupImported})
		case events.BidFlash:
			e.notify(Notification{Kind: NotifyBidFlash})
		}

	default:
		log.Debug().Str("event", string(frame.Event)).Msg("Ignoring unknown event")
	}
}

func (e *Engine) apply(ev store.Event, source string) {
	mirror, outcome := e.store.Apply(ev)
	e.metrics.RecordStateWrite(source, outcome.String())

	switch outcome {
	case store.Applied:
		facts := derive.Derive(mirror)
		for _, l := range e.snapshotListeners() {
			if l.OnState != nil {
				l.OnState(mirror, facts)
			}
		}
	case store.Stale:
		log.Debug().Str("source", source).Msg("Dropped stale state document")
	}
}

func (e *Engine) notify(n Notification) {
	for _, l := range e.snapshotListeners() {
		if l.OnNotification != nil {
			l.OnNotification(n)
		}
	}
}

func (e *Engine) snapshotListeners() []Listener {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	ls := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		ls = append(ls, l)
	}
	return ls
}

// fetch runs one snapshot request off the loop. The result re-enters
// through the inbox.
func (e *Engine) fetch(ctx context.Context, reason string) {
	e.fetches.Add(1)
	go func() {
		defer e.fetches.Done()

		fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()

		start := e.clock.Now()
		doc, err := e.fetcher.FetchState(fetchCtx)
		e.metrics.RecordSnapshotFetch(err == nil, e.clock.Since(start))

		e.enqueue(fetchCompleted{doc: doc, err: err, reason: reason})
	}()
}
