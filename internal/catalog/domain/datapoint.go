package catalog

import (
	"context"
	"errors"
	"time"
)

// DataPoint represents a measured point on a device.
type DataPoint struct {
	ID        string
	Code      string
	Name      string
	DeviceID  string
	StationID string
	Unit      string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks data point invariants.
func (p DataPoint) Validate() error {
	if p.ID == "" {
		return errors.New("datapoint: empty id")
	}
	if p.DeviceID == "" {
		return errors.New("datapoint: empty device id")
	}
	return nil
}

// DataPointRepository manages data point persistence.
type DataPointRepository interface {
	Get(ctx context.Context, id string) (*DataPoint, error)
	ListEnabledByDevice(ctx context.Context, deviceID string) ([]DataPoint, error)
	Save(ctx context.Context, point *DataPoint) error
}
