package views

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/dispatch"
	"github.com/mcdev12/auction-live/go/internal/auction/engine"
	"github.com/mcdev12/auction-live/go/internal/auction/feedback"
	"github.com/mcdev12/auction-live/go/internal/auction/store"
)

// Source is what a view mounts on. *engine.Engine satisfies it.
type Source interface {
	Subscribe(l engine.Listener) (unsubscribe func())
	Current() (store.Mirror, derive.Facts)
	Dispatcher() *dispatch.Dispatcher
}

// Hooks let the embedding program render. Any field may be nil.
type Hooks struct {
	OnFacts func(f derive.Facts)
	Edges   feedback.EdgeHandlers
}

type Option func(*viewOptions)

type viewOptions struct {
	clock clockwork.Clock
	sink  feedback.Sink
	hooks Hooks
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *viewOptions) { o.clock = clock }
}

func WithSink(sink feedback.Sink) Option {
	return func(o *viewOptions) { o.sink = sink }
}

func WithHooks(hooks Hooks) Option {
	return func(o *viewOptions) { o.hooks = hooks }
}

func buildOptions(opts []Option) viewOptions {
	o := viewOptions{
		clock: clockwork.NewRealClock(),
		sink:  feedback.NopSink{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// mount holds the listener registration shared by every role view. Mounting
// never touches the live channel; only the listener is added and removed.
type mount struct {
	source Source
	hooks  Hooks
	edges  *feedback.EdgeWatcher

	// publishMu orders the initial publish before any pushed one.
	publishMu sync.Mutex

	mu          sync.RWMutex
	mirror      store.Mirror
	facts       derive.Facts
	unsubscribe func()
}

func newMount(source Source, hooks Hooks) *mount {
	return &mount{
		source: source,
		hooks:  hooks,
		edges:  feedback.NewEdgeWatcher(hooks.Edges),
	}
}

// attach registers the view. onState runs after the view has recorded the
// new facts. It is a no-op while already attached.
func (m *mount) attach(onState func(derive.Facts), onNotification func(engine.Notification)) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	m.mu.Lock()
	if m.unsubscribe != nil {
		m.mu.Unlock()
		return
	}
	m.unsubscribe = m.source.Subscribe(engine.Listener{
		OnState: func(mirror store.Mirror, f derive.Facts) {
			m.publishMu.Lock()
			defer m.publishMu.Unlock()
			m.record(mirror, f)
			m.publish(f, onState)
		},
		OnNotification: onNotification,
	})
	m.mu.Unlock()

	mirror, f := m.source.Current()
	m.record(mirror, f)
	m.publish(f, onState)
}

func (m *mount) record(mirror store.Mirror, f derive.Facts) {
	m.mu.Lock()
	m.mirror, m.facts = mirror, f
	m.mu.Unlock()
}

func (m *mount) publish(f derive.Facts, onState func(derive.Facts)) {
	m.edges.Observe(f)
	if onState != nil {
		onState(f)
	}
	if m.hooks.OnFacts != nil {
		m.hooks.OnFacts(f)
	}
}

// detach reports whether a registration was released.
func (m *mount) detach() bool {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe == nil {
		return false
	}
	unsubscribe()
	return true
}

func (m *mount) Mounted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unsubscribe != nil
}

// Facts returns the facts of the latest applied write.
func (m *mount) Facts() derive.Facts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.facts
}

func (m *mount) Mirror() store.Mirror {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mirror
}
