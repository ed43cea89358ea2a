package alarms

import (
	"context"
	"errors"
	"time"
)

const (
	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusCleared      = "cleared"
)

// ErrNotFound indicates a missing alarm record.
var ErrNotFound = errors.New("alarm: not found")

// ErrConflictState indicates an illegal lifecycle transition. The record is
// left unchanged when this is returned.
var ErrConflictState = errors.New("alarm: conflicting state")

// Alarm is an alarm instance raised by a rule evaluation. Its status moves
// active -> acknowledged -> cleared, with active -> cleared also legal;
// cleared is terminal.
type Alarm struct {
	ID             string    `json:"id"`
	RuleID         string    `json:"rule_id"`
	DeviceID       string    `json:"device_id"`
	DataPointID    string    `json:"data_point_id"`
	StationID      string    `json:"station_id"`
	Severity       string    `json:"severity"`
	Status         string    `json:"status"`
	Value          float64   `json:"value"`
	TriggeredAt    time.Time `json:"triggered_at"`
	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitempty"`
	ClearedAt      time.Time `json:"cleared_at,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Repository manages alarm persistence. Alarms are never deleted.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Alarm, error)
	Create(ctx context.Context, alarm *Alarm) error
	MarkAcknowledged(ctx context.Context, id, userID, notes string, at time.Time) error
	MarkCleared(ctx context.Context, id, notes string, at time.Time) error
	ListByStationStatusAndTime(ctx context.Context, stationID, status string, from, to time.Time) ([]Alarm, error)
}
