package models

import (
	"bytes"
	"encoding/json"
)

// ID is an authority-issued identifier. The authority is not consistent about
// sending ids as strings or numbers, so both decode to the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// PlayerStatus is the roster status of a player.
type PlayerStatus string

const (
	PlayerAvailable PlayerStatus = "available"
	PlayerSold      PlayerStatus = "sold"
	PlayerUnsold    PlayerStatus = "unsold"
)

// Player represents a lot that can be put up for auction
type Player struct {
	ID        ID           `json:"id"`
	Name      string       `json:"name"`
	Position  string       `json:"position,omitempty"`
	Rating    float64      `json:"rating,omitempty"`
	BasePrice int          `json:"basePrice"`
	Photo     string       `json:"photo,omitempty"`
	Status    PlayerStatus `json:"status,omitempty"`
}
