package views

import (
	"sync"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/engine"
	"github.com/mcdev12/auction-live/go/internal/auction/events"
	"github.com/mcdev12/auction-live/go/internal/auction/feedback"
	"github.com/mcdev12/auction-live/go/internal/models"
)

const (
	playerAddedMessage = "Player added."
	teamSavedMessage   = "Team saved."
)

// AdminView is the control console. It is the only role with the countdown
// alarm.
type AdminView struct {
	*mount
	alarm  *feedback.Alarm
	flash  *feedback.Flash
	toasts *feedback.Toasts

	rosterMu sync.Mutex
	query    string
	page     int
}

func NewAdminView(source Source, opts ...Option) *AdminView {
	o := buildOptions(opts)
	return &AdminView{
		mount:  newMount(source, o.hooks),
		alarm:  feedback.NewAlarm(o.sink),
		flash:  feedback.NewFlash(o.clock, o.sink),
		toasts: feedback.NewToasts(o.clock, o.sink),
		page:   1,
	}
}

func (v *AdminView) Mount() {
	v.attach(v.onState, v.onNotification)
}

// Unmount releases the listener and cancels pending flash and toast timers.
func (v *AdminView) Unmount() {
	if v.detach() {
		v.flash.Stop()
		v.toasts.Stop()
	}
}

func (v *AdminView) onState(f derive.Facts) {
	v.alarm.Observe(f.Timer)
}

func (v *AdminView) onNotification(n engine.Notification) {
	switch n.Kind {
	case engine.NotifyBidFlash:
		v.flash.Trigger()
	case engine.NotifyBidError:
		v.toasts.BidError(n.Message)
	case engine.NotifyBackupImported:
		v.toasts.BackupImported()
	}
}

func (v *AdminView) Flashing() bool {
	return v.flash.Active()
}

func (v *AdminView) Toast() (feedback.Toast, bool) {
	return v.toasts.Current()
}

// Search filters the roster and returns to the first page.
func (v *AdminView) Search(query string) {
	v.rosterMu.Lock()
	defer v.rosterMu.Unlock()
	v.query = query
	v.page = 1
}

func (v *AdminView) SetPage(page int) {
	v.rosterMu.Lock()
	defer v.rosterMu.Unlock()
	v.page = page
}

// Roster returns the current page of the filtered player list. The stored
// page is clamped so it never points past the end after a removal.
func (v *AdminView) Roster() derive.Page[models.Player] {
	var players []models.Player
	if doc := v.Mirror().Doc; doc != nil {
		players = doc.Players
	}

	v.rosterMu.Lock()
	defer v.rosterMu.Unlock()
	page := derive.Paginate(derive.FilterPlayers(players, v.query), v.page, derive.DefaultPageSize)
	v.page = page.Page
	return page
}

func (v *AdminView) StartAuction(playerID models.ID) error {
	return v.source.Dispatcher().StartAuction(playerID)
}

func (v *AdminView) MarkSold() error {
	return v.source.Dispatcher().MarkSold()
}

func (v *AdminView) MarkUnsold() error {
	return v.source.Dispatcher().MarkUnsold()
}

func (v *AdminView) ReturnToIdle() error {
	return v.source.Dispatcher().ReturnToIdle()
}

func (v *AdminView) UndoBid() error {
	return v.source.Dispatcher().UndoBid()
}

// AddPlayer waits for the authority's ack and reports the outcome as a toast.
func (v *AdminView) AddPlayer(fields events.PlayerFields) error {
	return v.source.Dispatcher().AddPlayer(fields, v.ackToast(playerAddedMessage))
}

func (v *AdminView) EditPlayer(id models.ID, fields events.PlayerFields) error {
	return v.source.Dispatcher().EditPlayer(id, fields)
}

func (v *AdminView) RemovePlayer(id models.ID) error {
	return v.source.Dispatcher().RemovePlayer(id)
}

func (v *AdminView) ResetPlayer(id models.ID) error {
	return v.source.Dispatcher().ResetPlayer(id)
}

// SaveTeam creates a team when id is empty.
func (v *AdminView) SaveTeam(id models.ID, fields events.TeamFields) error {
	return v.source.Dispatcher().SaveTeam(id, fields, v.ackToast(teamSavedMessage))
}

func (v *AdminView) RemoveTeam(id models.ID) error {
	return v.source.Dispatcher().RemoveTeam(id)
}

func (v *AdminView) ackToast(success string) func(events.AckPayload, error) {
	return func(result events.AckPayload, err error) {
		switch {
		case err != nil:
			v.toasts.Show(feedback.Toast{Kind: feedback.ToastError, Message: err.Error()}, feedback.BidErrorDuration)
		case !result.OK:
			msg := result.Error
			if msg == "" {
				msg = "rejected"
			}
			v.toasts.Show(feedback.Toast{Kind: feedback.ToastError, Message: msg}, feedback.BidErrorDuration)
		default:
			v.toasts.Show(feedback.Toast{Kind: feedback.ToastSuccess, Message: success}, feedback.BackupImportedDuration)
		}
	}
}
