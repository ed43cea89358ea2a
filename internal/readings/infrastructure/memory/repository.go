package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	readings "scada-cloud/internal/readings/domain"
)

// ReadingRepository is an in-memory reading store for demo/testing.
type ReadingRepository struct {
	mu   sync.RWMutex
	data map[string][]readings.Reading
}

// NewReadingRepository constructs a repository.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{data: make(map[string][]readings.Reading)}
}

// Insert appends readings, keeping each point's series sorted by timestamp.
func (r *ReadingRepository) Insert(ctx context.Context, batch []readings.Reading) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	touched := make(map[string]struct{})
	for _, reading := range batch {
		reading.TS = reading.TS.UTC()
		r.data[reading.DataPointID] = append(r.data[reading.DataPointID], reading)
		touched[reading.DataPointID] = struct{}{}
	}
	for pointID := range touched {
		series := r.data[pointID]
		sort.Slice(series, func(i, j int) bool { return series[i].TS.Before(series[j].TS) })
	}
	return nil
}

// QueryRange returns readings within [start, end).
func (r *ReadingRepository) QueryRange(ctx context.Context, dataPointID string, start, end time.Time) ([]readings.Reading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []readings.Reading
	for _, reading := range r.data[dataPointID] {
		if reading.TS.Before(start) || !reading.TS.Before(end) {
			continue
		}
		result = append(result, reading)
	}
	return result, nil
}
