package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	alarmevents "scada-cloud/internal/alarms/application/events"
	alarms "scada-cloud/internal/alarms/domain"
	catalog "scada-cloud/internal/catalog/domain"
	"scada-cloud/internal/eventing"
	"scada-cloud/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// TriggerRequest raises a new alarm from a rule evaluation.
type TriggerRequest struct {
	RuleID      string
	DeviceID    string
	DataPointID string
	Severity    string
	Value       float64
	Notes       string
}

// Service owns the alarm lifecycle. All mutations go through here so every
// transition is validated and produces exactly one domain event.
type Service struct {
	alarms   alarms.Repository
	stations catalog.StationRepository
	devices  catalog.DeviceRepository
	points   catalog.DataPointRepository
	bus      eventing.EventBus
	clock    Clock
}

// ServiceOption customizes the alarm service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs an alarm service.
func NewService(repo alarms.Repository, stations catalog.StationRepository, devices catalog.DeviceRepository, points catalog.DataPointRepository, bus eventing.EventBus, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("alarms: nil repository")
	}
	if stations == nil || devices == nil || points == nil {
		return nil, errors.New("alarms: nil catalog repository")
	}
	if bus == nil {
		return nil, errors.New("alarms: nil event bus")
	}
	service := &Service{
		alarms:   repo,
		stations: stations,
		devices:  devices,
		points:   points,
		bus:      bus,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Trigger raises a new alarm in status active and publishes alarm.created
// with denormalized catalog labels.
func (s *Service) Trigger(ctx context.Context, req TriggerRequest) (*alarms.Alarm, error) {
	if req.RuleID == "" {
		return nil, errors.New("alarms: rule id required")
	}
	if req.DeviceID == "" {
		return nil, errors.New("alarms: device id required")
	}

	device, err := s.devices.Get(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, fmt.Errorf("alarms: device %s: %w", req.DeviceID, catalog.ErrNotFound)
	}

	var pointName string
	if req.DataPointID != "" {
		point, err := s.points.Get(ctx, req.DataPointID)
		if err != nil {
			return nil, err
		}
		if point == nil {
			return nil, fmt.Errorf("alarms: data point %s: %w", req.DataPointID, catalog.ErrNotFound)
		}
		pointName = point.Name
	}

	var stationName string
	if station, err := s.stations.Get(ctx, device.StationID); err == nil && station != nil {
		stationName = station.Name
	}

	now := s.clock.Now().UTC()
	alarm := &alarms.Alarm{
		ID:          buildAlarmID(req.RuleID, req.DeviceID, now),
		RuleID:      req.RuleID,
		DeviceID:    req.DeviceID,
		DataPointID: req.DataPointID,
		StationID:   device.StationID,
		Severity:    req.Severity,
		Status:      alarms.StatusActive,
		Value:       req.Value,
		TriggeredAt: now,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.alarms.Create(ctx, alarm); err != nil {
		return nil, err
	}

	metrics.IncAlarmEvent("created")
	s.publish(ctx, &alarmevents.AlarmCreated{
		EventID:       eventing.NewEventID(),
		AlarmID:       alarm.ID,
		RuleID:        alarm.RuleID,
		StationID:     alarm.StationID,
		StationName:   stationName,
		DeviceID:      alarm.DeviceID,
		DeviceName:    device.Name,
		DataPointID:   alarm.DataPointID,
		DataPointName: pointName,
		Severity:      alarm.Severity,
		Value:         alarm.Value,
		TriggeredAt:   alarm.TriggeredAt,
		OccurredAt:    now,
	})
	return alarm, nil
}

// Acknowledge moves an alarm from active to acknowledged. Any other source
// state is a conflict and the record is not touched.
func (s *Service) Acknowledge(ctx context.Context, id, userID, notes string) (*alarms.Alarm, error) {
	if id == "" {
		return nil, errors.New("alarms: alarm id required")
	}
	if userID == "" {
		return nil, errors.New("alarms: user id required")
	}
	alarm, err := s.alarms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alarm == nil {
		return nil, alarms.ErrNotFound
	}
	if alarm.Status != alarms.StatusActive {
		return nil, fmt.Errorf("cannot acknowledge alarm in status %s: %w", alarm.Status, alarms.ErrConflictState)
	}

	ackedAt := s.clock.Now().UTC()
	joined := joinNotes(alarm.Notes, notes)
	if err := s.alarms.MarkAcknowledged(ctx, alarm.ID, userID, joined, ackedAt); err != nil {
		return nil, err
	}
	alarm.Status = alarms.StatusAcknowledged
	alarm.AcknowledgedBy = userID
	alarm.AcknowledgedAt = ackedAt
	alarm.Notes = joined
	alarm.UpdatedAt = ackedAt

	metrics.IncAlarmEvent("acknowledged")
	s.publish(ctx, &alarmevents.AlarmAcknowledged{
		EventID:        eventing.NewEventID(),
		AlarmID:        alarm.ID,
		StationID:      alarm.StationID,
		DeviceID:       alarm.DeviceID,
		AcknowledgedBy: userID,
		AcknowledgedAt: ackedAt,
		Notes:          notes,
		OccurredAt:     ackedAt,
	})
	return alarm, nil
}

// Clear moves an alarm to its terminal cleared state, from either active or
// acknowledged. Clearing a cleared alarm is a conflict.
func (s *Service) Clear(ctx context.Context, id, notes string) (*alarms.Alarm, error) {
	if id == "" {
		return nil, errors.New("alarms: alarm id required")
	}
	alarm, err := s.alarms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alarm == nil {
		return nil, alarms.ErrNotFound
	}
	if alarm.Status == alarms.StatusCleared {
		return nil, fmt.Errorf("alarm already cleared: %w", alarms.ErrConflictState)
	}

	clearedAt := s.clock.Now().UTC()
	joined := joinNotes(alarm.Notes, notes)
	if err := s.alarms.MarkCleared(ctx, alarm.ID, joined, clearedAt); err != nil {
		return nil, err
	}
	alarm.Status = alarms.StatusCleared
	alarm.ClearedAt = clearedAt
	alarm.Notes = joined
	alarm.UpdatedAt = clearedAt

	metrics.IncAlarmEvent("cleared")
	s.publish(ctx, &alarmevents.AlarmCleared{
		EventID:    eventing.NewEventID(),
		AlarmID:    alarm.ID,
		StationID:  alarm.StationID,
		DeviceID:   alarm.DeviceID,
		ClearedAt:  clearedAt,
		Notes:      notes,
		OccurredAt: clearedAt,
	})
	return alarm, nil
}

// List returns alarms by station, optional status and time range.
func (s *Service) List(ctx context.Context, stationID, status string, from, to time.Time) ([]alarms.Alarm, error) {
	if stationID == "" {
		return nil, errors.New("alarms: station id required")
	}
	return s.alarms.ListByStationStatusAndTime(ctx, stationID, status, from.UTC(), to.UTC())
}

func (s *Service) publish(ctx context.Context, event any) {
	metrics.IncEventPublished(eventing.EventType(event))
	_ = s.bus.Publish(ctx, event)
}

// joinNotes appends new notes to the existing text, newline-joined, keeping
// the prior text intact.
func joinNotes(existing, added string) string {
	if added == "" {
		return existing
	}
	if existing == "" {
		return added
	}
	return existing + "\n" + added
}

func buildAlarmID(ruleID, deviceID string, at time.Time) string {
	sum := sha1.Sum([]byte(ruleID + "|" + deviceID + "|" + at.Format(time.RFC3339Nano)))
	return "alarm-" + hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
