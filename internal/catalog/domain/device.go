package catalog

import (
	"context"
	"errors"
	"time"
)

const (
	DeviceStatusActive      = "active"
	DeviceStatusInactive    = "inactive"
	DeviceStatusFaulty      = "faulty"
	DeviceStatusMaintenance = "maintenance"
)

// ErrNotFound indicates a missing catalog record.
var ErrNotFound = errors.New("catalog: not found")

// Device represents a field device bound to a station.
type Device struct {
	ID         string
	Code       string
	Name       string
	StationID  string
	DeviceType string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks device invariants.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.New("device: empty id")
	}
	if d.StationID == "" {
		return errors.New("device: empty station id")
	}
	return nil
}

// Commandable reports whether the device may receive commands.
func (d Device) Commandable() bool {
	return d.Status != DeviceStatusInactive && d.Status != DeviceStatusFaulty
}

// DeviceRepository manages device persistence.
type DeviceRepository interface {
	Get(ctx context.Context, id string) (*Device, error)
	ListByStation(ctx context.Context, stationID string) ([]Device, error)
	ListActive(ctx context.Context) ([]Device, error)
	Save(ctx context.Context, device *Device) error
}
