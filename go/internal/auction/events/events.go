package events

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/auction-live/go/internal/models"
)

// Name identifies an event on the live channel
type Name string

// Inbound events pushed by the authority
const (
	StateUpdate       Name = "stateUpdate"
	TimerUpdate       Name = "timerUpdate"
	TimerFinalSeconds Name = "timerFinalSeconds"
	BidFlash          Name = "bidFlash"
	BidError          Name = "bidError"
	BackupImported    Name = "backupImported"
	PlayerSold        Name = "playerSold"
	Ack               Name = "ack"
)

// Outbound commands
const (
	AdminAuth         Name = "admin:auth"
	AdminStartAuction Name = "admin:startAuction"
	AdminSold         Name = "admin:sold"
	AdminUnsold       Name = "admin:unsold"
	AdminIdle         Name = "admin:idle"
	AdminUndoBid      Name = "admin:undoBid"
	AdminAddPlayer    Name = "admin:addPlayer"
	AdminEditPlayer   Name = "admin:editPlayer"
	AdminRemovePlayer Name = "admin:removePlayer"
	AdminResetPlayer  Name = "admin:resetPlayer"
	AdminSaveTeam     Name = "admin:saveTeam"
	AdminRemoveTeam   Name = "admin:removeTeam"
	PlaceBid          Name = "placeBid"
)

// Frame is the envelope of every message on the live channel, in both directions.
type Frame struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}

// NewFrame marshals payload into a frame. A nil payload produces a frame without data.
func NewFrame(name Name, payload interface{}, ackID string) (Frame, error) {
	frame := Frame{Event: name, AckID: ackID}
	if payload == nil {
		return frame, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	frame.Data = data
	return frame, nil
}

// TimerPayload is carried by both timerUpdate and timerFinalSeconds.
type TimerPayload struct {
	Remaining int `json:"remaining"`
}

// BidErrorPayload is the business rejection of a bid.
type BidErrorPayload struct {
	Msg string `json:"msg"`
}

// AckPayload answers an acknowledged command.
type AckPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Empty is the parsed payload of events that carry none.
type Empty struct{}

// ParsePayload decodes frame data into the payload type for its event.
func ParsePayload(frame Frame) (interface{}, error) {
	switch frame.Event {
	case StateUpdate:
		var payload models.StateDocument
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case TimerUpdate, TimerFinalSeconds:
		var payload TimerPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case BidError:
		var payload BidErrorPayload
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				return nil, err
			}
		}
		return payload, nil

	case PlayerSold:
		var payload models.SaleAnnouncement
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case Ack:
		var payload AckPayload
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				return nil, err
			}
		}
		return payload, nil

	case BidFlash, BackupImported:
		return Empty{}, nil

	default:
		return nil, nil // Unknown event type
	}
}
