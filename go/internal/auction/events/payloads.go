package events

import "github.com/mcdev12/auction-live/go/internal/models"

// Command payloads sent to the authority

type AuthPayload struct {
	Token string `json:"token"`
}

type StartAuctionPayload struct {
	PlayerID models.ID `json:"playerId"`
}

type PlaceBidPayload struct {
	TeamID models.ID `json:"teamId"`
	Amount int       `json:"amount"`
}

// PlayerFields are the editable roster attributes of a player.
type PlayerFields struct {
	Name      string  `json:"name"`
	Position  string  `json:"position,omitempty"`
	Rating    float64 `json:"rating,omitempty"`
	BasePrice int     `json:"basePrice"`
	Photo     string  `json:"photo,omitempty"`
}

type EditPlayerPayload struct {
	ID models.ID `json:"id"`
	PlayerFields
}

type PlayerRefPayload struct {
	PlayerID models.ID `json:"playerId"`
}

// TeamFields are the editable attributes of a team. An empty ID on save
// creates a team.
type TeamFields struct {
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Logo   string `json:"logo,omitempty"`
	Budget int    `json:"budget,omitempty"`
}

type SaveTeamPayload struct {
	ID models.ID `json:"id,omitempty"`
	TeamFields
}

type TeamRefPayload struct {
	TeamID models.ID `json:"teamId"`
}
