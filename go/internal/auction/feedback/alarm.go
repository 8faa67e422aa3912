package feedback

import (
	"sync"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
)

// Alarm fires once per distinct second inside the alarm window. It remembers
// only the last second it fired for; leaving the window forgets it so the
// next lot can re-arm.
type Alarm struct {
	mu    sync.Mutex
	fired int
	armed bool
	sink  Sink
}

func NewAlarm(sink Sink) *Alarm {
	return &Alarm{sink: sink}
}

// Observe feeds one remaining-seconds value and reports whether it fired.
func (a *Alarm) Observe(remaining int) bool {
	a.mu.Lock()
	if !derive.InAlarmWindow(remaining) {
		a.armed = false
		a.mu.Unlock()
		return false
	}
	if a.armed && a.fired == remaining {
		a.mu.Unlock()
		return false
	}
	a.fired, a.armed = remaining, true
	a.mu.Unlock()

	a.sink.Alarm(remaining)
	return true
}
