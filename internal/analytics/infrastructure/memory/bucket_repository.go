package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	analytics "scada-cloud/internal/analytics/domain"
)

// BucketRepository is an in-memory bucket store for demo/testing.
type BucketRepository struct {
	mu   sync.RWMutex
	data map[analytics.Granularity]map[string]analytics.Bucket
}

// NewBucketRepository constructs a repository.
func NewBucketRepository() *BucketRepository {
	return &BucketRepository{
		data: map[analytics.Granularity]map[string]analytics.Bucket{
			analytics.GranularityHourly: {},
			analytics.GranularityDaily:  {},
		},
	}
}

func bucketKey(dataPointID string, start time.Time) string {
	return dataPointID + "|" + start.UTC().Format(time.RFC3339)
}

// Upsert writes the bucket, reporting whether the key was new.
func (r *BucketRepository) Upsert(ctx context.Context, granularity analytics.Granularity, bucket *analytics.Bucket) (bool, error) {
	_ = ctx
	if bucket == nil {
		return false, errors.New("memory bucket repo: nil bucket")
	}
	if !granularity.IsValid() {
		return false, analytics.ErrInvalidGranularity
	}

	key := bucketKey(bucket.DataPointID, bucket.BucketStart)
	stored := *bucket
	stored.BucketStart = bucket.BucketStart.UTC()
	stored.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.data[granularity][key]
	r.data[granularity][key] = stored
	return !exists, nil
}

// FindByPointAndStart loads a bucket by its unique key.
func (r *BucketRepository) FindByPointAndStart(ctx context.Context, granularity analytics.Granularity, dataPointID string, bucketStart time.Time) (*analytics.Bucket, error) {
	_ = ctx
	if !granularity.IsValid() {
		return nil, analytics.ErrInvalidGranularity
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.data[granularity][bucketKey(dataPointID, bucketStart)]
	if !ok {
		return nil, nil
	}
	return &bucket, nil
}

// List returns buckets matching the filter, ordered by bucket start then
// data point, with the unpaginated total.
func (r *BucketRepository) List(ctx context.Context, granularity analytics.Granularity, filter analytics.BucketFilter) ([]analytics.Bucket, int, error) {
	_ = ctx
	if !granularity.IsValid() {
		return nil, 0, analytics.ErrInvalidGranularity
	}

	r.mu.RLock()
	var matched []analytics.Bucket
	for _, bucket := range r.data[granularity] {
		if filter.DeviceID != "" && bucket.DeviceID != filter.DeviceID {
			continue
		}
		if filter.DataPointID != "" && bucket.DataPointID != filter.DataPointID {
			continue
		}
		if !filter.Start.IsZero() && bucket.BucketStart.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && !bucket.BucketStart.Before(filter.End) {
			continue
		}
		matched = append(matched, bucket)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].BucketStart.Equal(matched[j].BucketStart) {
			return matched[i].BucketStart.Before(matched[j].BucketStart)
		}
		return matched[i].DataPointID < matched[j].DataPointID
	})

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = total
	}
	offset := (page - 1) * limit
	if offset >= total {
		return nil, total, nil
	}
	endIdx := offset + limit
	if endIdx > total {
		endIdx = total
	}
	return matched[offset:endIdx], total, nil
}
