package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	alarms "scada-cloud/internal/alarms/domain"
)

// AlarmRepository is an in-memory alarm store for demo/testing.
type AlarmRepository struct {
	mu   sync.RWMutex
	data map[string]alarms.Alarm
}

// NewAlarmRepository constructs a repository.
func NewAlarmRepository() *AlarmRepository {
	return &AlarmRepository{data: make(map[string]alarms.Alarm)}
}

// GetByID fetches an alarm by id.
func (r *AlarmRepository) GetByID(ctx context.Context, id string) (*alarms.Alarm, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	alarm, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	return &alarm, nil
}

// Create inserts a new alarm.
func (r *AlarmRepository) Create(ctx context.Context, alarm *alarms.Alarm) error {
	_ = ctx
	if alarm == nil {
		return errors.New("memory alarm repo: nil alarm")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[alarm.ID]; exists {
		return errors.New("memory alarm repo: duplicate id")
	}
	r.data[alarm.ID] = *alarm
	return nil
}

// MarkAcknowledged records an acknowledgement.
func (r *AlarmRepository) MarkAcknowledged(ctx context.Context, id, userID, notes string, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	alarm, ok := r.data[id]
	if !ok {
		return alarms.ErrNotFound
	}
	alarm.Status = alarms.StatusAcknowledged
	alarm.AcknowledgedBy = userID
	alarm.AcknowledgedAt = at.UTC()
	alarm.Notes = notes
	alarm.UpdatedAt = at.UTC()
	r.data[id] = alarm
	return nil
}

// MarkCleared records the terminal transition.
func (r *AlarmRepository) MarkCleared(ctx context.Context, id, notes string, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	alarm, ok := r.data[id]
	if !ok {
		return alarms.ErrNotFound
	}
	alarm.Status = alarms.StatusCleared
	alarm.ClearedAt = at.UTC()
	alarm.Notes = notes
	alarm.UpdatedAt = at.UTC()
	r.data[id] = alarm
	return nil
}

// ListByStationStatusAndTime lists alarms for a station.
func (r *AlarmRepository) ListByStationStatusAndTime(ctx context.Context, stationID, status string, from, to time.Time) ([]alarms.Alarm, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []alarms.Alarm
	for _, alarm := range r.data {
		if alarm.StationID != stationID {
			continue
		}
		if status != "" && alarm.Status != status {
			continue
		}
		if alarm.TriggeredAt.Before(from) || !alarm.TriggeredAt.Before(to) {
			continue
		}
		result = append(result, alarm)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TriggeredAt.After(result[j].TriggeredAt) })
	return result, nil
}
