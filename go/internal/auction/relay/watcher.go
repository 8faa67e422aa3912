package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/feedback"
	"github.com/mcdev12/auction-live/go/internal/models"
)

const publishTimeout = 5 * time.Second

type LotSoldPayload struct {
	Player models.Player    `json:"player"`
	Team   *derive.SoldTeam `json:"team,omitempty"`
	Price  int              `json:"price"`
}

type LotUnsoldPayload struct {
	PlayerName string `json:"playerName"`
}

type PhasePayload struct {
	From models.Phase `json:"from"`
	To   models.Phase `json:"to"`
}

// LotWatcher turns successive facts into downstream events. Observe runs on
// the engine loop, so publishing happens on the watcher's own goroutine.
type LotWatcher struct {
	publisher Publisher
	edges     *feedback.EdgeWatcher
	queue     chan AuctionEvent

	mu    sync.Mutex
	phase models.Phase
	seen  bool
}

func NewLotWatcher(publisher Publisher) *LotWatcher {
	w := &LotWatcher{
		publisher: publisher,
		queue:     make(chan AuctionEvent, 64),
	}
	w.edges = feedback.NewEdgeWatcher(feedback.EdgeHandlers{
		LotConcluded: w.lotConcluded,
	})
	return w
}

// Observe records one facts value.
func (w *LotWatcher) Observe(f derive.Facts) {
	if !f.HasState {
		return
	}

	w.mu.Lock()
	prev, seen := w.phase, w.seen
	w.phase, w.seen = f.Phase, true
	w.mu.Unlock()

	if seen && prev != f.Phase {
		w.enqueue(AuctionEvent{
			ID:        uuid.NewString(),
			EventType: EventPhase,
			Payload:   PhasePayload{From: prev, To: f.Phase},
		})
	}
	w.edges.Observe(f)
}

func (w *LotWatcher) lotConcluded(o derive.Overlay) {
	switch o.Kind {
	case derive.OverlaySold:
		if o.Sold == nil {
			return
		}
		w.enqueue(AuctionEvent{
			// a sale is published once even if the relay restarts
			ID:        fmt.Sprintf("sold-%s-%d", o.Sold.Player.ID, o.Sold.Price),
			EventType: EventLotSold,
			Payload:   LotSoldPayload{Player: o.Sold.Player, Team: o.Sold.Team, Price: o.Sold.Price},
		})
	case derive.OverlayUnsold:
		w.enqueue(AuctionEvent{
			ID:        uuid.NewString(),
			EventType: EventLotUnsold,
			Payload:   LotUnsoldPayload{PlayerName: o.PlayerName},
		})
	}
}

func (w *LotWatcher) enqueue(event AuctionEvent) {
	select {
	case w.queue <- event:
	default:
		log.Warn().Str("event_type", event.EventType).Msg("Publish queue full, dropping auction event")
	}
}

// Start publishes queued events until ctx is done.
func (w *LotWatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.queue:
			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := w.publisher.Publish(pubCtx, event); err != nil {
				log.Error().Err(err).Str("event_type", event.EventType).Str("event_id", event.ID).Msg("Failed to publish auction event")
			}
			cancel()
		}
	}
}
