package derive

import (
	"github.com/mcdev12/auction-live/go/internal/auction/store"
	"github.com/mcdev12/auction-live/go/internal/models"
)

const (
	RecentBidsWindow  = 12
	RecentSalesWindow = 8
)

// Facts is everything a view renders, computed from one mirror.
type Facts struct {
	HasState bool         `json:"hasState"`
	Synced   bool         `json:"synced"`
	Phase    models.Phase `json:"phase"`

	CurrentPlayer *models.Player `json:"currentPlayer,omitempty"`
	CurrentBid    int            `json:"currentBid"`
	LeadingTeam   *models.Team   `json:"leadingTeam,omitempty"`
	Increment     int            `json:"increment"`
	NextBid       int            `json:"nextBid"`

	Timer         int  `json:"timer"`
	TimerCritical bool `json:"timerCritical"`
	AlarmEligible bool `json:"alarmEligible"`

	Overlay        Overlay `json:"overlay"`
	DisplayOverlay Overlay `json:"displayOverlay"`

	Standings   []Standing          `json:"standings"`
	RecentBids  []models.BidRecord  `json:"recentBids"`
	RecentSales []models.SoldRecord `json:"recentSales"`

	Config models.Config `json:"config"`
}

// Derive computes Facts. It is deterministic and has no side effects.
func Derive(m store.Mirror) Facts {
	if m.Doc == nil {
		cfg := models.Config{}.WithDefaults()
		return Facts{
			Phase:          models.PhaseIdle,
			Synced:         m.Synced,
			Increment:      Increment(0, cfg),
			NextBid:        NextBid(0, cfg),
			Overlay:        Overlay{Kind: OverlayWaiting},
			DisplayOverlay: Overlay{Kind: OverlayWaiting},
			Config:         cfg,
		}
	}

	state := m.Doc.AuctionState
	cfg := m.Doc.Config.WithDefaults()
	timer := DisplayTimer(state.Phase, m.Timer, state.TimerRemaining)
	live := state.Phase == models.PhaseLive

	return Facts{
		HasState:       true,
		Synced:         m.Synced,
		Phase:          state.Phase,
		CurrentPlayer:  state.CurrentPlayer,
		CurrentBid:     state.CurrentBid,
		LeadingTeam:    state.LeadingTeam,
		Increment:      Increment(state.CurrentBid, cfg),
		NextBid:        NextBid(state.CurrentBid, cfg),
		Timer:          timer,
		TimerCritical:  live && IsCritical(timer),
		AlarmEligible:  live && InAlarmWindow(timer),
		Overlay:        SelectOverlay(state),
		DisplayOverlay: SelectDisplayOverlay(state, m.LastSale),
		Standings:      Standings(m.Doc.Teams),
		RecentBids:     head(state.BidHistory, RecentBidsWindow),
		RecentSales:    newestFirst(state.SoldPlayers, RecentSalesWindow),
		Config:         cfg,
	}
}

// IsLeading reports whether teamID holds the highest bid on the current lot.
func (f Facts) IsLeading(teamID models.ID) bool {
	return teamID != "" && f.LeadingTeam != nil && f.LeadingTeam.ID == teamID
}

// CanBid reports whether a bidder console should offer the bid button.
func (f Facts) CanBid(teamID models.ID) bool {
	return teamID != "" && f.Phase == models.PhaseLive
}

// LotEnded is true whenever there is no live lot on the block.
func (f Facts) LotEnded() bool {
	return f.CurrentPlayer == nil || f.Phase != models.PhaseLive
}

func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func newestFirst(sales []models.SoldRecord, n int) []models.SoldRecord {
	count := len(sales)
	if count > n {
		count = n
	}
	out := make([]models.SoldRecord, 0, count)
	for i := len(sales) - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, sales[i])
	}
	return out
}
