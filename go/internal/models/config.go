package models

const (
	DefaultThresholdBid  = 200
	DefaultHighIncrement = 20
	DefaultLowIncrement  = 10
)

// Config holds league branding and auction economics.
type Config struct {
	LeagueName      string `json:"leagueName,omitempty"`
	LeagueSeason    string `json:"leagueSeason,omitempty"`
	LeagueLogo      string `json:"leagueLogo,omitempty"`
	ThresholdBid    int    `json:"thresholdBid,omitempty"`
	HighIncrement   int    `json:"highIncrement,omitempty"`
	LowIncrement    int    `json:"lowIncrement,omitempty"`
	TeamBudgetLimit int    `json:"teamBudgetLimit,omitempty"`
}

// WithDefaults fills unset economics with the league defaults.
func (c Config) WithDefaults() Config {
	if c.ThresholdBid == 0 {
		c.ThresholdBid = DefaultThresholdBid
	}
	if c.HighIncrement == 0 {
		c.HighIncrement = DefaultHighIncrement
	}
	if c.LowIncrement == 0 {
		c.LowIncrement = DefaultLowIncrement
	}
	return c
}
