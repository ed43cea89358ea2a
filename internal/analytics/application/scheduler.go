package application

import (
	"context"
	"errors"
	"log"
	"time"

	analytics "scada-cloud/internal/analytics/domain"
	catalog "scada-cloud/internal/catalog/domain"
)

// Scheduler drives the aggregation engine on a wall-clock cadence: hourly
// rollups at the top of every hour and daily rollups at a configured
// time-of-day, across all active devices. Reading arrival plays no part in
// the schedule; devices with no data in a window simply produce no buckets.
type Scheduler struct {
	service *Service
	devices catalog.DeviceRepository
	cfg     SchedulerConfig
	logger  *log.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(service *Service, devices catalog.DeviceRepository, cfg SchedulerConfig, logger *log.Logger) (*Scheduler, error) {
	if service == nil {
		return nil, errors.New("scheduler: nil aggregation service")
	}
	if devices == nil {
		return nil, errors.New("scheduler: nil device repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{service: service, devices: devices, cfg: cfg, logger: logger}, nil
}

// Start begins the scheduler loop. It returns when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now.UTC())
		}
	}
}

// Tick runs whatever is due at the given instant.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	now = now.UTC()
	if s.cfg.HourlyEnabled && now.Minute() == 0 {
		s.RunHourly(ctx, now)
	}
	if hour, minute, err := parseDailyAt(s.cfg.DailyAt); err == nil {
		if now.Hour() == hour && now.Minute() == minute {
			s.RunDaily(ctx, now)
		}
	}
}

// RunHourly aggregates the previous full hour for every active device.
// A device failure is logged and does not cancel the run.
func (s *Scheduler) RunHourly(ctx context.Context, now time.Time) {
	end := now.UTC().Truncate(time.Hour)
	start := end.Add(-time.Hour)
	s.run(ctx, start, end, analytics.GranularityHourly)
}

// RunDaily aggregates the previous calendar day for every active device.
func (s *Scheduler) RunDaily(ctx context.Context, now time.Time) {
	end := analytics.GranularityDaily.Truncate(now)
	start := end.AddDate(0, 0, -1)
	s.run(ctx, start, end, analytics.GranularityDaily)
}

func (s *Scheduler) run(ctx context.Context, start, end time.Time, granularity analytics.Granularity) {
	devices, err := s.devices.ListActive(ctx)
	if err != nil {
		s.logger.Printf("scheduled aggregation: list devices error: %v", err)
		return
	}
	for _, device := range devices {
		result, err := s.service.Aggregate(ctx, Request{
			DeviceID:    device.ID,
			Start:       start,
			End:         end,
			Granularity: granularity,
		})
		if err != nil {
			s.logger.Printf("scheduled aggregation: device=%s granularity=%s err=%v", device.ID, granularity, err)
			continue
		}
		s.logger.Printf("scheduled aggregation: device=%s granularity=%s created=%d updated=%d failed=%d",
			device.ID, granularity, result.RecordsCreated, result.RecordsUpdated, len(result.Failed))
	}
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
