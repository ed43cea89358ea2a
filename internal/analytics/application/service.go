package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	analytics "scada-cloud/internal/analytics/domain"
	catalog "scada-cloud/internal/catalog/domain"
	"scada-cloud/internal/observability/metrics"
	readings "scada-cloud/internal/readings/domain"
)

// Request describes one aggregation invocation. The range is
// inclusive-exclusive; DataPointID is optional and scopes the run to a
// single point of the device.
type Request struct {
	DeviceID    string
	DataPointID string
	Start       time.Time
	End         time.Time
	Granularity analytics.Granularity
}

// Result reports what an aggregation run did. Failed holds the data point
// ids whose rollup failed; the rest of the run still completed.
type Result struct {
	RecordsCreated int      `json:"records_created"`
	RecordsUpdated int      `json:"records_updated"`
	Failed         []string `json:"failed,omitempty"`
}

// Service is the aggregation engine. It folds raw readings into hourly and
// daily buckets, upserting per window so repeated runs over the same range
// converge to identical bucket values.
type Service struct {
	buckets  analytics.BucketRepository
	readings readings.Query
	points   catalog.DataPointRepository
	logger   *log.Logger
}

// NewService constructs the aggregation engine.
func NewService(buckets analytics.BucketRepository, query readings.Query, points catalog.DataPointRepository, logger *log.Logger) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("analytics: nil bucket repository")
	}
	if query == nil {
		return nil, errors.New("analytics: nil reading query")
	}
	if points == nil {
		return nil, errors.New("analytics: nil data point repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{buckets: buckets, readings: query, points: points, logger: logger}, nil
}

// Aggregate rolls the device's readings in [Start, End) into buckets of the
// requested granularity. A failure on one data point is recorded and does not
// abort the remaining points.
func (s *Service) Aggregate(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	result, err := s.aggregate(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if len(result.Failed) > 0 {
		outcome = "partial"
	}
	metrics.ObserveAggregation(string(req.Granularity), outcome, time.Since(started))
	return result, err
}

func (s *Service) aggregate(ctx context.Context, req Request) (Result, error) {
	var result Result
	if req.DeviceID == "" {
		return result, errors.New("analytics: device id required")
	}
	if !req.Granularity.IsValid() {
		return result, analytics.ErrInvalidGranularity
	}
	if req.Start.IsZero() || req.End.IsZero() || !req.End.After(req.Start) {
		return result, analytics.ErrInvalidRange
	}

	points, err := s.resolvePoints(ctx, req)
	if err != nil {
		return result, err
	}

	for _, point := range points {
		created, updated, err := s.aggregatePoint(ctx, point, req.Start, req.End, req.Granularity)
		if err != nil {
			s.logger.Printf("aggregation failed: device=%s point=%s err=%v", req.DeviceID, point.ID, err)
			result.Failed = append(result.Failed, point.ID)
			continue
		}
		result.RecordsCreated += created
		result.RecordsUpdated += updated
	}
	metrics.AddBucketsWritten("create", result.RecordsCreated)
	metrics.AddBucketsWritten("update", result.RecordsUpdated)
	return result, nil
}

func (s *Service) resolvePoints(ctx context.Context, req Request) ([]catalog.DataPoint, error) {
	if req.DataPointID != "" {
		point, err := s.points.Get(ctx, req.DataPointID)
		if err != nil {
			return nil, err
		}
		if point == nil {
			return nil, fmt.Errorf("analytics: data point %s: %w", req.DataPointID, catalog.ErrNotFound)
		}
		if point.DeviceID != req.DeviceID {
			return nil, fmt.Errorf("analytics: data point %s does not belong to device %s", req.DataPointID, req.DeviceID)
		}
		return []catalog.DataPoint{*point}, nil
	}
	return s.points.ListEnabledByDevice(ctx, req.DeviceID)
}

// aggregatePoint walks full windows covering [start, end). A window always
// spans its complete boundary-aligned range even when the requested range is
// narrower, so the stored bucket stays recomputable from the whole window.
func (s *Service) aggregatePoint(ctx context.Context, point catalog.DataPoint, start, end time.Time, granularity analytics.Granularity) (created, updated int, err error) {
	for windowStart := granularity.Truncate(start); windowStart.Before(end); windowStart = granularity.Next(windowStart) {
		windowEnd := granularity.Next(windowStart)
		series, err := s.readings.QueryRange(ctx, point.ID, windowStart, windowEnd)
		if err != nil {
			return created, updated, err
		}
		if len(series) == 0 {
			continue
		}

		bucket := computeBucket(point, windowStart, series)
		wasCreated, err := s.buckets.Upsert(ctx, granularity, bucket)
		if err != nil {
			return created, updated, err
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

func computeBucket(point catalog.DataPoint, windowStart time.Time, series []readings.Reading) *analytics.Bucket {
	bucket := &analytics.Bucket{
		DeviceID:    point.DeviceID,
		DataPointID: point.ID,
		BucketStart: windowStart,
		Min:         series[0].Value,
		Max:         series[0].Value,
	}
	for _, reading := range series {
		if reading.Value < bucket.Min {
			bucket.Min = reading.Value
		}
		if reading.Value > bucket.Max {
			bucket.Max = reading.Value
		}
		bucket.Sum += reading.Value
	}
	bucket.Count = len(series)
	bucket.Avg = bucket.Sum / float64(bucket.Count)
	return bucket
}
