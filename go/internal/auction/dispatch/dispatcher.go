package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/events"
	"github.com/mcdev12/auction-live/go/internal/auction/metrics"
	"github.com/mcdev12/auction-live/go/internal/models"
)

// DefaultAckTimeout bounds how long an acknowledged command waits for its ack.
const DefaultAckTimeout = 8 * time.Second

var (
	ErrAckTimeout = errors.New("request timed out")
	ErrNoTeam     = errors.New("no team selected")
	ErrNotLive    = errors.New("auction is not live")
)

// Emitter sends named frames over the live channel. *channel.Channel satisfies it.
type Emitter interface {
	Emit(name events.Name, payload interface{}) error
	EmitWithAck(name events.Name, payload interface{}, ackID string) error
}

// AckCallback receives the authority's answer to an acknowledged command.
// err is ErrAckTimeout when no answer arrived in time; a rejection arrives as
// result.OK == false with a nil err.
type AckCallback func(result events.AckPayload, err error)

type pendingAck struct {
	command events.Name
	cb      AckCallback
	timer   clockwork.Timer
}

// Dispatcher translates user intents into outbound commands.
type Dispatcher struct {
	emitter    Emitter
	clock      clockwork.Clock
	ackTimeout time.Duration
	metrics    metrics.MetricsCollector

	mu      sync.Mutex
	pending map[string]*pendingAck
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithClock(clock clockwork.Clock) Option {
	return func(d *Dispatcher) { d.clock = clock }
}

func WithAckTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.ackTimeout = timeout
		}
	}
}

func WithMetrics(m metrics.MetricsCollector) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func New(emitter Emitter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		emitter:    emitter,
		clock:      clockwork.NewRealClock(),
		ackTimeout: DefaultAckTimeout,
		metrics:    metrics.NoOpMetricsCollector{},
		pending:    make(map[string]*pendingAck),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Authenticate elevates the current connection to admin.
func (d *Dispatcher) Authenticate(token string) error {
	return d.send(events.AdminAuth, events.AuthPayload{Token: token})
}

// PlaceBid bids the next valid amount for teamID. The local guard only keeps
// the console from sending obviously pointless bids; budget and leader
// checks belong to the authority.
func (d *Dispatcher) PlaceBid(teamID models.ID, facts derive.Facts) error {
	if teamID == "" {
		return ErrNoTeam
	}
	if facts.Phase != models.PhaseLive {
		return ErrNotLive
	}
	return d.send(events.PlaceBid, events.PlaceBidPayload{TeamID: teamID, Amount: facts.NextBid})
}

func (d *Dispatcher) StartAuction(playerID models.ID) error {
	return d.send(events.AdminStartAuction, events.StartAuctionPayload{PlayerID: playerID})
}

func (d *Dispatcher) MarkSold() error {
	return d.send(events.AdminSold, events.Empty{})
}

func (d *Dispatcher) MarkUnsold() error {
	return d.send(events.AdminUnsold, events.Empty{})
}

func (d *Dispatcher) ReturnToIdle() error {
	return d.send(events.AdminIdle, events.Empty{})
}

func (d *Dispatcher) UndoBid() error {
	return d.send(events.AdminUndoBid, events.Empty{})
}

// AddPlayer creates a roster entry. With a nil callback it is fire-and-forget.
func (d *Dispatcher) AddPlayer(fields events.PlayerFields, cb AckCallback) error {
	if cb == nil {
		return d.send(events.AdminAddPlayer, fields)
	}
	return d.sendWithAck(events.AdminAddPlayer, fields, cb)
}

func (d *Dispatcher) EditPlayer(id models.ID, fields events.PlayerFields) error {
	return d.send(events.AdminEditPlayer, events.EditPlayerPayload{ID: id, PlayerFields: fields})
}

func (d *Dispatcher) RemovePlayer(id models.ID) error {
	return d.send(events.AdminRemovePlayer, events.PlayerRefPayload{PlayerID: id})
}

func (d *Dispatcher) ResetPlayer(id models.ID) error {
	return d.send(events.AdminResetPlayer, events.PlayerRefPayload{PlayerID: id})
}

// SaveTeam creates (empty id) or updates a team. With a nil callback it is
// fire-and-forget.
func (d *Dispatcher) SaveTeam(id models.ID, fields events.TeamFields, cb AckCallback) error {
	payload := events.SaveTeamPayload{ID: id, TeamFields: fields}
	if cb == nil {
		return d.send(events.AdminSaveTeam, payload)
	}
	return d.sendWithAck(events.AdminSaveTeam, payload, cb)
}

func (d *Dispatcher) RemoveTeam(id models.ID) error {
	return d.send(events.AdminRemoveTeam, events.TeamRefPayload{TeamID: id})
}

// HandleAck resolves the pending command registered under id. Acks for
// unknown ids, including ones that already timed out, are dropped.
func (d *Dispatcher) HandleAck(id string, result events.AckPayload) {
	p := d.take(id)
	if p == nil {
		log.Debug().Str("ack_id", id).Msg("Dropping ack for unknown or expired command")
		return
	}
	p.timer.Stop()
	p.cb(result, nil)
}

// Pending returns the number of commands awaiting an ack.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) send(name events.Name, payload interface{}) error {
	err := d.emitter.Emit(name, payload)
	d.metrics.RecordCommand(string(name), err == nil)
	if err != nil {
		log.Warn().Err(err).Str("command", string(name)).Msg("Failed to send command")
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

func (d *Dispatcher) sendWithAck(name events.Name, payload interface{}, cb AckCallback) error {
	id := uuid.NewString()
	p := &pendingAck{command: name, cb: cb}

	d.mu.Lock()
	d.pending[id] = p
	p.timer = d.clock.AfterFunc(d.ackTimeout, func() { d.expire(id) })
	d.mu.Unlock()

	err := d.emitter.EmitWithAck(name, payload, id)
	d.metrics.RecordCommand(string(name), err == nil)
	if err != nil {
		if p := d.take(id); p != nil {
			p.timer.Stop()
		}
		log.Warn().Err(err).Str("command", string(name)).Msg("Failed to send command")
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

func (d *Dispatcher) expire(id string) {
	p := d.take(id)
	if p == nil {
		return
	}
	d.metrics.RecordAckTimeout(string(p.command))
	log.Warn().Str("command", string(p.command)).Str("ack_id", id).Msg("Command acknowledgement timed out")
	p.cb(events.AckPayload{}, ErrAckTimeout)
}

func (d *Dispatcher) take(id string) *pendingAck {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[id]
	if !ok {
		return nil
	}
	delete(d.pending, id)
	return p
}
