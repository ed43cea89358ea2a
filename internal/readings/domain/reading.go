package readings

import (
	"context"
	"time"
)

const (
	QualityGood      = "good"
	QualityUncertain = "uncertain"
	QualityBad       = "bad"
)

// Reading is a raw measurement written to storage. Readings are immutable
// once inserted.
type Reading struct {
	DataPointID string
	DeviceID    string
	TS          time.Time
	Value       float64
	Quality     string
}

// Repository persists raw readings.
type Repository interface {
	Insert(ctx context.Context, readings []Reading) error
}

// Query loads raw readings for aggregation windows.
type Query interface {
	QueryRange(ctx context.Context, dataPointID string, start, end time.Time) ([]Reading, error)
}
