package feedback

import (
	"sync"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/models"
)

// EdgeHandlers are invoked once per transition. Either field may be nil.
type EdgeHandlers struct {
	BidChanged   func(amount int, leader *models.Team)
	LotConcluded func(overlay derive.Overlay)
}

// EdgeWatcher turns a stream of Facts into transitions. The first Facts seen
// only establishes the baseline, and identical Facts never fire. A lot
// concludes at most once between two live phases.
type EdgeWatcher struct {
	handlers EdgeHandlers

	mu     sync.Mutex
	seen   bool
	bid    int
	leader models.ID
	concl  string
}

func NewEdgeWatcher(handlers EdgeHandlers) *EdgeWatcher {
	return &EdgeWatcher{handlers: handlers}
}

func (w *EdgeWatcher) Observe(f derive.Facts) {
	var leader models.ID
	if f.LeadingTeam != nil {
		leader = f.LeadingTeam.ID
	}
	concl := conclusionKey(f)

	w.mu.Lock()
	first := !w.seen
	bidChanged := !first && f.Phase == models.PhaseLive && (f.CurrentBid != w.bid || leader != w.leader)
	concluded := !first && concl != "" && concl != w.concl
	w.seen, w.bid, w.leader = true, f.CurrentBid, leader
	switch f.Phase {
	case models.PhaseLive:
		// a new lot is on the block
		w.concl = ""
	case models.PhaseSold, models.PhaseUnsold:
		if concl != "" {
			w.concl = concl
		}
	}
	w.mu.Unlock()

	if bidChanged && w.handlers.BidChanged != nil {
		w.handlers.BidChanged(f.CurrentBid, f.LeadingTeam)
	}
	if concluded && w.handlers.LotConcluded != nil {
		w.handlers.LotConcluded(f.Overlay)
	}
}

// conclusionKey identifies a concluded lot, or is empty while no lot has
// concluded. Only the sold and unsold phases conclude a lot; the idle phase
// still shows the last sale but concludes nothing.
func conclusionKey(f derive.Facts) string {
	o := f.Overlay
	switch {
	case f.Phase == models.PhaseSold && o.Kind == derive.OverlaySold:
		if o.Sold != nil {
			return "sold:" + string(o.Sold.Player.ID) + ":" + o.Sold.Player.Name
		}
		return "sold:" + o.PlayerName
	case f.Phase == models.PhaseUnsold && o.Kind == derive.OverlayUnsold:
		return "unsold:" + o.PlayerName
	default:
		return ""
	}
}
