package models

import (
	"encoding/json"
	"strings"
)

// Phase is the lifecycle stage of the lot currently on the block.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseLive   Phase = "live"
	PhaseSold   Phase = "sold"
	PhaseUnsold Phase = "unsold"
)

// UnmarshalJSON accepts any casing; unknown or empty phases decode as idle.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*p = PhaseIdle
		return nil
	}
	*p = ParsePhase(raw)
	return nil
}

// ParsePhase normalizes a phase string from the authority.
func ParsePhase(raw string) Phase {
	switch Phase(strings.ToLower(strings.TrimSpace(raw))) {
	case PhaseLive:
		return PhaseLive
	case PhaseSold:
		return PhaseSold
	case PhaseUnsold:
		return PhaseUnsold
	default:
		return PhaseIdle
	}
}

// AuctionState mirrors the authority's view of the current lot.
type AuctionState struct {
	Phase          Phase        `json:"phase"`
	CurrentPlayer  *Player      `json:"currentPlayer,omitempty"`
	CurrentBid     int          `json:"currentBid"`
	LeadingTeam    *Team        `json:"leadingTeam,omitempty"`
	BidHistory     []BidRecord  `json:"bidHistory"`  // most recent first
	SoldPlayers    []SoldRecord `json:"soldPlayers"` // append-only
	TimerRemaining int          `json:"timerRemaining"`
}

// BidRecord is one accepted bid on the current lot. The authority carries the
// bidding team by display name and branding, not by id.
type BidRecord struct {
	Team   string `json:"team"`
	Color  string `json:"color,omitempty"`
	Logo   string `json:"logo,omitempty"`
	Amount int    `json:"amount"`
}

// SoldRecord is a completed sale as carried in soldPlayers.
type SoldRecord struct {
	Player    Player `json:"player"`
	Team      string `json:"team"`
	TeamColor string `json:"teamColor,omitempty"`
	TeamLogo  string `json:"teamLogo,omitempty"`
	Price     int    `json:"price"`
}

// SaleAnnouncement is the playerSold payload. It arrives ahead of the
// stateUpdate that records the same sale.
type SaleAnnouncement struct {
	Player Player `json:"player"`
	Team   *Team  `json:"team,omitempty"`
	Price  int    `json:"price"`
}

// StateDocument is the full document served by GET /api/state and pushed
// as stateUpdate. Version is optional; zero means the authority did not send one.
type StateDocument struct {
	AuctionState AuctionState `json:"auctionState"`
	Teams        []Team       `json:"teams"`
	Players      []Player     `json:"players"`
	Config       Config       `json:"config"`
	Version      uint64       `json:"version,omitempty"`
}

// LastSale returns the newest entry of soldPlayers.
func (s AuctionState) LastSale() (SoldRecord, bool) {
	if len(s.SoldPlayers) == 0 {
		return SoldRecord{}, false
	}
	return s.SoldPlayers[len(s.SoldPlayers)-1], true
}

// FindTeam looks a team up by id.
func (d *StateDocument) FindTeam(id ID) (Team, bool) {
	if d == nil {
		return Team{}, false
	}
	for _, t := range d.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}
