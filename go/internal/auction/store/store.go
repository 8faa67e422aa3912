package store

import (
	"sync"

	"github.com/mcdev12/auction-live/go/internal/models"
)

// Mirror is the client's read-only copy of the authority's state.
type Mirror struct {
	// Doc is replaced whole on every snapshot or push; nil until the first one lands.
	Doc *models.StateDocument
	// Timer is the latest tick, kept apart from Doc so ticks never rewrite rosters.
	Timer *int
	// LastSale is the most recent playerSold announcement for the current lot.
	LastSale *models.SaleAnnouncement
	// Synced is false from a reconnect until the following snapshot lands.
	Synced bool
	// Generation counts writes that changed the mirror.
	Generation uint64
}

// Phase returns the current phase, idle when nothing has been received yet.
func (m Mirror) Phase() models.Phase {
	if m.Doc == nil {
		return models.PhaseIdle
	}
	return m.Doc.AuctionState.Phase
}

// Outcome reports what Reduce did with an event.
type Outcome int

const (
	Applied Outcome = iota
	// Stale means the event carried a document older than the held one.
	Stale
	// Ignored means the event was a no-op (for example a nil document).
	Ignored
)

// Reduce computes the next mirror. It never mutates prev.
func Reduce(prev Mirror, ev Event) (Mirror, Outcome) {
	next := prev

	switch e := ev.(type) {
	case SnapshotReceived:
		if e.Doc == nil {
			return prev, Ignored
		}
		if isOlder(e.Doc, prev.Doc) {
			// An older snapshot still proves the fetch round-trip finished.
			if !prev.Synced {
				next.Synced = true
				next.Generation = prev.Generation + 1
			}
			return next, Stale
		}
		next = replaceDoc(prev, e.Doc)
		next.Synced = true

	case PushReceived:
		if e.Doc == nil {
			return prev, Ignored
		}
		if isOlder(e.Doc, prev.Doc) {
			return prev, Stale
		}
		next = replaceDoc(prev, e.Doc)

	case TimerTick:
		remaining := e.Remaining
		next.Timer = &remaining

	case ChannelReconnected:
		next.Synced = false

	case SaleAnnounced:
		sale := e.Sale
		next.LastSale = &sale

	default:
		return prev, Ignored
	}

	next.Generation = prev.Generation + 1
	return next, Applied
}

// replaceDoc installs doc and drops the per-lot side state that no longer applies.
func replaceDoc(prev Mirror, doc *models.StateDocument) Mirror {
	next := prev
	next.Doc = doc

	phase := doc.AuctionState.Phase
	if phase != models.PhaseLive {
		next.Timer = nil
	}
	if phase == models.PhaseLive {
		next.LastSale = nil
	}
	return next
}

// isOlder is only decided when both documents carry a version.
func isOlder(incoming, held *models.StateDocument) bool {
	if held == nil || incoming.Version == 0 || held.Version == 0 {
		return false
	}
	return incoming.Version < held.Version
}

// Store is the single-slot holder of the mirror.
type Store struct {
	mu     sync.RWMutex
	mirror Mirror
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Current returns the current mirror without blocking on I/O.
func (s *Store) Current() Mirror {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror
}

// Apply reduces ev into the held mirror and returns the result.
func (s *Store) Apply(ev Event) (Mirror, Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, outcome := Reduce(s.mirror, ev)
	s.mirror = next
	return next, outcome
}

// Reset discards the mirror.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = Mirror{}
}

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Stale:
		return "stale"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}
