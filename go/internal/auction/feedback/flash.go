package feedback

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FlashDuration is how long a bidFlash highlight stays on.
const FlashDuration = 400 * time.Millisecond

// Flash is a transient highlight. Re-triggering while lit extends it.
type Flash struct {
	clock clockwork.Clock
	sink  Sink

	mu    sync.Mutex
	on    bool
	gen   uint64
	timer clockwork.Timer
}

func NewFlash(clock clockwork.Clock, sink Sink) *Flash {
	return &Flash{clock: clock, sink: sink}
}

func (f *Flash) Trigger() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.gen++
	gen := f.gen
	wasOn := f.on
	f.on = true
	f.timer = f.clock.AfterFunc(FlashDuration, func() { f.expire(gen) })
	f.mu.Unlock()

	if !wasOn {
		f.sink.Flash(true)
	}
}

func (f *Flash) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Stop cancels a pending expiry and turns the highlight off.
func (f *Flash) Stop() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
	wasOn := f.on
	f.on = false
	f.mu.Unlock()

	if wasOn {
		f.sink.Flash(false)
	}
}

func (f *Flash) expire(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || !f.on {
		f.mu.Unlock()
		return
	}
	f.on = false
	f.timer = nil
	f.mu.Unlock()

	f.sink.Flash(false)
}
