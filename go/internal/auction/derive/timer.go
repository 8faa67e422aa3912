package derive

import "github.com/mcdev12/auction-live/go/internal/models"

const (
	CriticalSeconds = 3
	AlarmWindowLow  = 1
	AlarmWindowHigh = 5
)

// DisplayTimer prefers the latest tick over the document's timerRemaining. It
// is zero outside a live lot and never negative.
func DisplayTimer(phase models.Phase, tick *int, timerRemaining int) int {
	if phase != models.PhaseLive {
		return 0
	}
	remaining := timerRemaining
	if tick != nil {
		remaining = *tick
	}
	return max(remaining, 0)
}

// IsCritical reports whether the countdown gets critical styling.
func IsCritical(remaining int) bool {
	return remaining <= CriticalSeconds
}

// InAlarmWindow reports whether remaining is inside the audible alarm band.
func InAlarmWindow(remaining int) bool {
	return remaining >= AlarmWindowLow && remaining <= AlarmWindowHigh
}
