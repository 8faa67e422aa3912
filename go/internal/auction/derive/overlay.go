package derive

import "github.com/mcdev12/auction-live/go/internal/models"

// OverlayKind is the screen that applies to the current lot.
type OverlayKind string

const (
	OverlayLive    OverlayKind = "live"
	OverlayWaiting OverlayKind = "waiting"
	OverlaySold    OverlayKind = "sold"
	OverlayUnsold  OverlayKind = "unsold"
)

// SoldTeam is the team shown on the congratulations overlay.
type SoldTeam struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Logo  string `json:"logo,omitempty"`
}

// SoldView feeds the congratulations overlay.
type SoldView struct {
	Player models.Player `json:"player"`
	Team   *SoldTeam     `json:"team,omitempty"`
	Price  int           `json:"price"`
}

// Overlay is the result of overlay selection. Exactly one kind applies.
type Overlay struct {
	Kind       OverlayKind `json:"kind"`
	Sold       *SoldView   `json:"sold,omitempty"`
	PlayerName string      `json:"playerName,omitempty"`
}

// SelectOverlay walks the priority chain: unsold, then sold/idle with at least
// one sale, then idle, then live. The sold overlay always describes the last
// sale, never currentPlayer, which the authority may already have cleared.
func SelectOverlay(state models.AuctionState) Overlay {
	if state.Phase == models.PhaseUnsold {
		overlay := Overlay{Kind: OverlayUnsold}
		if state.CurrentPlayer != nil {
			overlay.PlayerName = state.CurrentPlayer.Name
		}
		return overlay
	}

	if state.Phase == models.PhaseSold || state.Phase == models.PhaseIdle {
		if last, ok := state.LastSale(); ok {
			view := soldViewFromRecord(last)
			return Overlay{Kind: OverlaySold, Sold: &view, PlayerName: last.Player.Name}
		}
	}

	if state.Phase == models.PhaseIdle {
		return Overlay{Kind: OverlayWaiting}
	}

	// A sold lot with no recorded sale yet keeps the live card until the
	// authority's push lands.
	return Overlay{Kind: OverlayLive}
}

// SelectDisplayOverlay is SelectOverlay for the public display, which shows a
// fresher playerSold announcement in place of the recorded last sale.
func SelectDisplayOverlay(state models.AuctionState, announced *models.SaleAnnouncement) Overlay {
	overlay := SelectOverlay(state)
	if overlay.Kind != OverlaySold || announced == nil {
		return overlay
	}
	view := soldViewFromAnnouncement(*announced)
	overlay.Sold = &view
	overlay.PlayerName = announced.Player.Name
	return overlay
}

func soldViewFromRecord(rec models.SoldRecord) SoldView {
	view := SoldView{Player: rec.Player, Price: rec.Price}
	if rec.Team != "" {
		view.Team = &SoldTeam{Name: rec.Team, Color: rec.TeamColor, Logo: rec.TeamLogo}
	}
	return view
}

func soldViewFromAnnouncement(sale models.SaleAnnouncement) SoldView {
	view := SoldView{Player: sale.Player, Price: sale.Price}
	if sale.Team != nil {
		view.Team = &SoldTeam{Name: sale.Team.Name, Color: sale.Team.Color, Logo: sale.Team.Logo}
	}
	return view
}
