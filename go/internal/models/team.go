package models

// Team represents a bidding franchise. Spent <= Budget is enforced by the
// authority only.
type Team struct {
	ID      ID           `json:"id"`
	Name    string       `json:"name"`
	Color   string       `json:"color,omitempty"`
	Logo    string       `json:"logo,omitempty"`
	Budget  int          `json:"budget"`
	Spent   int          `json:"spent"`
	Players []TeamPlayer `json:"players,omitempty"`
}

// TeamPlayer is a won player together with the price paid.
type TeamPlayer struct {
	Player
	SoldPrice int `json:"soldPrice"`
}

// Remaining returns budget minus spent. It can be negative if the authority
// ever reports an overspent team.
func (t Team) Remaining() int {
	return t.Budget - t.Spent
}
