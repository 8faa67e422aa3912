package engine

import (
	"github.com/mcdev12/auction-live/go/internal/auction/events"
	"github.com/mcdev12/auction-live/go/internal/models"
)

// inboxMsg is everything the engine loop reacts to.
type inboxMsg interface{ isInboxMsg() }

type frameReceived struct {
	frame events.Frame
}

type channelConnected struct {
	reconnect bool
}

type channelDisconnected struct {
	err error
}

type fetchCompleted struct {
	doc    *models.StateDocument
	err    error
	reason string
}

func (frameReceived) isInboxMsg()       {}
func (channelConnected) isInboxMsg()    {}
func (channelDisconnected) isInboxMsg() {}
func (fetchCompleted) isInboxMsg()      {}

type NotificationKind string

const (
	NotifyBidError       NotificationKind = "bidError"
	NotifyBackupImported NotificationKind = "backupImported"
	NotifyBidFlash       NotificationKind = "bidFlash"
)

// Notification is a transient, role-scoped message that never touches the
// mirror.
type Notification struct {
	Kind    NotificationKind
	Message string
}
