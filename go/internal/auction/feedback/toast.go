package feedback

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	BidErrorDuration       = 4500 * time.Millisecond
	BackupImportedDuration = 3 * time.Second
	BackupImportedMessage  = "Backup imported successfully."
)

type ToastKind string

const (
	ToastError   ToastKind = "error"
	ToastSuccess ToastKind = "success"
)

type Toast struct {
	Kind    ToastKind `json:"kind"`
	Message string    `json:"message"`
}

// Toasts holds at most one visible toast. A newer toast replaces the older
// one and restarts the dismissal timer.
type Toasts struct {
	clock clockwork.Clock
	sink  Sink

	mu      sync.Mutex
	current *Toast
	gen     uint64
	timer   clockwork.Timer
}

func NewToasts(clock clockwork.Clock, sink Sink) *Toasts {
	return &Toasts{clock: clock, sink: sink}
}

func (t *Toasts) Show(toast Toast, d time.Duration) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.current = &toast
	t.timer = t.clock.AfterFunc(d, func() { t.dismiss(gen) })
	t.mu.Unlock()

	t.sink.Toast(&toast)
}

func (t *Toasts) BidError(msg string) {
	t.Show(Toast{Kind: ToastError, Message: msg}, BidErrorDuration)
}

func (t *Toasts) BackupImported() {
	t.Show(Toast{Kind: ToastSuccess, Message: BackupImportedMessage}, BackupImportedDuration)
}

// Current returns the visible toast, if any.
func (t *Toasts) Current() (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Toast{}, false
	}
	return *t.current, true
}

// Stop dismisses the visible toast immediately.
func (t *Toasts) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	had := t.current != nil
	t.current = nil
	t.mu.Unlock()

	if had {
		t.sink.Toast(nil)
	}
}

func (t *Toasts) dismiss(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.current == nil {
		t.mu.Unlock()
		return
	}
	t.current = nil
	t.timer = nil
	t.mu.Unlock()

	t.sink.Toast(nil)
}
