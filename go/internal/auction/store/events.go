package store

import "github.com/mcdev12/auction-live/go/internal/models"

// Event is one input to the reducer. The set is closed: SnapshotReceived,
// PushReceived, TimerTick, ChannelReconnected and SaleAnnounced.
type Event interface{ isStoreEvent() }

// SnapshotReceived carries a document fetched from GET /api/state.
type SnapshotReceived struct {
	Doc *models.StateDocument
}

// PushReceived carries a stateUpdate pushed on the live channel.
type PushReceived struct {
	Doc *models.StateDocument
}

// TimerTick carries timerUpdate / timerFinalSeconds.
type TimerTick struct {
	Remaining int
}

// ChannelReconnected is recorded whenever the live channel comes back after a drop.
type ChannelReconnected struct{}

// SaleAnnounced carries a playerSold notification.
type SaleAnnounced struct {
	Sale models.SaleAnnouncement
}

func (SnapshotReceived) isStoreEvent()   {}
func (PushReceived) isStoreEvent()       {}
func (TimerTick) isStoreEvent()          {}
func (ChannelReconnected) isStoreEvent() {}
func (SaleAnnounced) isStoreEvent()      {}
