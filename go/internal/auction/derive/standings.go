package derive

import (
	"sort"

	"github.com/mcdev12/auction-live/go/internal/models"
)

// Standing is one row of the budget table.
type Standing struct {
	Team        models.Team `json:"team"`
	Remaining   int         `json:"remaining"`
	PlayerCount int         `json:"playerCount"`
}

// Standings orders teams by remaining budget, highest first. Ties keep the
// authority's order.
func Standings(teams []models.Team) []Standing {
	rows := make([]Standing, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, Standing{Team: t, Remaining: t.Remaining(), PlayerCount: len(t.Players)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Remaining > rows[j].Remaining
	})
	return rows
}
