package derive

import (
	"strings"

	"github.com/mcdev12/auction-live/go/internal/models"
)

const DefaultPageSize = 10

// FilterPlayers keeps players whose name, position or id contains query,
// ignoring case. An empty query keeps everyone.
func FilterPlayers(players []models.Player, query string) []models.Player {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return players
	}

	out := make([]models.Player, 0, len(players))
	for _, p := range players {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Position), q) ||
			strings.Contains(strings.ToLower(p.ID.String()), q) {
			out = append(out, p)
		}
	}
	return out
}

// Page is one offset-based slice of a list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

// Paginate returns the 1-based page of items. The page is clamped into
// [1, TotalPages] and TotalPages is at least 1.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}
}
