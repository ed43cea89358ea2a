package analytics

import (
	"context"
	"errors"
	"time"
)

// Granularity is the bucket window width.
type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
)

// ErrInvalidGranularity indicates an unsupported granularity value.
var ErrInvalidGranularity = errors.New("analytics: invalid granularity")

// ErrInvalidRange indicates an empty or inverted time range.
var ErrInvalidRange = errors.New("analytics: invalid time range")

// IsValid reports whether the granularity is supported.
func (g Granularity) IsValid() bool {
	return g == GranularityHourly || g == GranularityDaily
}

// Truncate aligns t to the window boundary in UTC.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GranularityHourly:
		return t.Truncate(time.Hour)
	case GranularityDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

// Next returns the start of the window following windowStart.
func (g Granularity) Next(windowStart time.Time) time.Time {
	switch g {
	case GranularityHourly:
		return windowStart.Add(time.Hour)
	case GranularityDaily:
		return windowStart.AddDate(0, 0, 1)
	default:
		return windowStart
	}
}

// Bucket is a statistical rollup of readings within one window.
// Buckets are unique per (data point, bucket start) and are overwritten,
// never accumulated, on re-aggregation.
type Bucket struct {
	DeviceID    string    `json:"device_id"`
	DataPointID string    `json:"data_point_id"`
	BucketStart time.Time `json:"bucket_start"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Avg         float64   `json:"avg"`
	Sum         float64   `json:"sum"`
	Count       int       `json:"count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BucketFilter scopes a paginated bucket query.
type BucketFilter struct {
	DeviceID    string
	DataPointID string
	Start       time.Time
	End         time.Time
	Page        int
	Limit       int
}

// BucketRepository persists hourly and daily buckets.
type BucketRepository interface {
	// Upsert writes the bucket for its window, reporting whether a new row
	// was created. The write must be atomic per (data point, bucket start).
	Upsert(ctx context.Context, granularity Granularity, bucket *Bucket) (created bool, err error)
	FindByPointAndStart(ctx context.Context, granularity Granularity, dataPointID string, bucketStart time.Time) (*Bucket, error)
	List(ctx context.Context, granularity Granularity, filter BucketFilter) (items []Bucket, total int, err error)
}
