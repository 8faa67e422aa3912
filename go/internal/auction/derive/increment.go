package derive

import "github.com/mcdev12/auction-live/go/internal/models"

// Increment returns the bid step for the given amount. At exactly the
// threshold the lower step applies.
func Increment(currentBid int, cfg models.Config) int {
	cfg = cfg.WithDefaults()
	if currentBid < cfg.ThresholdBid {
		return cfg.HighIncrement
	}
	return cfg.LowIncrement
}

// NextBid is the only amount a bidder console offers.
func NextBid(currentBid int, cfg models.Config) int {
	return currentBid + Increment(currentBid, cfg)
}
