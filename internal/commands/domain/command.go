package commands

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	StatusPending  = "pending"
	StatusSent     = "sent"
	StatusExecuted = "executed"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

// ErrNotFound indicates a missing command record.
var ErrNotFound = errors.New("command: not found")

// ErrInvalidState indicates a transition attempted from the wrong source
// state, or a command targeting a device that cannot accept commands. The
// record is left unchanged when this is returned.
var ErrInvalidState = errors.New("command: invalid state")

// Command represents a device command. Status moves
// pending -> sent -> executed|failed, or pending -> rejected;
// executed, failed and rejected are terminal.
type Command struct {
	ID          string          `json:"id"`
	CommandNo   string          `json:"command_no"`
	StationID   string          `json:"station_id"`
	DeviceID    string          `json:"device_id"`
	CommandType string          `json:"command_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      string          `json:"status"`
	RequestedBy string          `json:"requested_by"`
	ApprovedBy  string          `json:"approved_by,omitempty"`
	Response    string          `json:"response,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	ApprovedAt  time.Time       `json:"approved_at,omitempty"`
	ExecutedAt  time.Time       `json:"executed_at,omitempty"`
}

// Terminal reports whether no further transition is defined for the status.
func (c Command) Terminal() bool {
	return c.Status == StatusExecuted || c.Status == StatusFailed || c.Status == StatusRejected
}

// Repository manages command persistence.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Command, error)
	Create(ctx context.Context, cmd *Command) error
	MarkSent(ctx context.Context, id, approver string, at time.Time) error
	MarkExecuted(ctx context.Context, id, response string, at time.Time) error
	MarkFailed(ctx context.Context, id, response string) error
	MarkRejected(ctx context.Context, id, response string) error
	ListByDeviceAndTime(ctx context.Context, deviceID string, from, to time.Time) ([]Command, error)
}
