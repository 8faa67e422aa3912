package views

import (
	"errors"
	"sync"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/engine"
	"github.com/mcdev12/auction-live/go/internal/auction/feedback"
	"github.com/mcdev12/auction-live/go/internal/models"
)

var ErrUnknownTeam = errors.New("unknown team")

// BidderView is a team manager's console.
type BidderView struct {
	*mount
	toasts *feedback.Toasts

	teamMu sync.RWMutex
	teamID models.ID
}

func NewBidderView(source Source, opts ...Option) *BidderView {
	o := buildOptions(opts)
	return &BidderView{
		mount:  newMount(source, o.hooks),
		toasts: feedback.NewToasts(o.clock, o.sink),
	}
}

func (v *BidderView) Mount() {
	v.attach(nil, v.onNotification)
}

func (v *BidderView) Unmount() {
	if v.detach() {
		v.toasts.Stop()
	}
}

func (v *BidderView) onNotification(n engine.Notification) {
	if n.Kind == engine.NotifyBidError {
		v.toasts.BidError(n.Message)
	}
}

// SelectTeam picks the team this console bids for. Before the first state
// arrives any id is accepted.
func (v *BidderView) SelectTeam(id models.ID) error {
	if doc := v.Mirror().Doc; doc != nil && id != "" {
		if _, ok := doc.FindTeam(id); !ok {
			return ErrUnknownTeam
		}
	}
	v.teamMu.Lock()
	v.teamID = id
	v.teamMu.Unlock()
	return nil
}

func (v *BidderView) TeamID() models.ID {
	v.teamMu.RLock()
	defer v.teamMu.RUnlock()
	return v.teamID
}

// Team returns the selected team as last mirrored.
func (v *BidderView) Team() (models.Team, bool) {
	return v.Mirror().Doc.FindTeam(v.TeamID())
}

// Remaining is the selected team's unspent budget.
func (v *BidderView) Remaining() int {
	team, ok := v.Team()
	if !ok {
		return 0
	}
	return team.Remaining()
}

func (v *BidderView) IsLeading() bool {
	return v.Facts().IsLeading(v.TeamID())
}

func (v *BidderView) CanBid() bool {
	return v.Facts().CanBid(v.TeamID())
}

func (v *BidderView) Standings() []derive.Standing {
	return v.Facts().Standings
}

// Bid offers the next valid amount. Whether it is accepted is up to the
// authority; a rejection arrives as a toast.
func (v *BidderView) Bid() error {
	return v.source.Dispatcher().PlaceBid(v.TeamID(), v.Facts())
}

func (v *BidderView) Toast() (feedback.Toast, bool) {
	return v.toasts.Current()
}
