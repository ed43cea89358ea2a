package application

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	analytics "scada-cloud/internal/analytics/domain"
	analyticsmem "scada-cloud/internal/analytics/infrastructure/memory"
	catalog "scada-cloud/internal/catalog/domain"
	catalogmem "scada-cloud/internal/catalog/infrastructure/memory"
	readings "scada-cloud/internal/readings/domain"
	readingmem "scada-cloud/internal/readings/infrastructure/memory"
)

type fixture struct {
	service  *Service
	buckets  *analyticsmem.BucketRepository
	readings *readingmem.ReadingRepository
	catalog  *catalogmem.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	cat := catalogmem.NewCatalog()
	if err := cat.Devices().Save(ctx, &catalog.Device{
		ID:        "dev-1",
		Code:      "PV-01",
		StationID: "st-1",
		Status:    catalog.DeviceStatusActive,
	}); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	if err := cat.Points().Save(ctx, &catalog.DataPoint{
		ID:        "pt-1",
		Code:      "power_kw",
		DeviceID:  "dev-1",
		StationID: "st-1",
		Enabled:   true,
	}); err != nil {
		t.Fatalf("seed point: %v", err)
	}

	buckets := analyticsmem.NewBucketRepository()
	store := readingmem.NewReadingRepository()
	logger := log.New(os.Stderr, "", 0)
	svc, err := NewService(buckets, store, cat.Points(), logger)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{service: svc, buckets: buckets, readings: store, catalog: cat}
}

func (f *fixture) seed(t *testing.T, pointID string, values map[time.Time]float64) {
	t.Helper()
	batch := make([]readings.Reading, 0, len(values))
	for ts, value := range values {
		batch = append(batch, readings.Reading{
			DataPointID: pointID,
			DeviceID:    "dev-1",
			TS:          ts,
			Value:       value,
			Quality:     readings.QualityGood,
		})
	}
	if err := f.readings.Insert(context.Background(), batch); err != nil {
		t.Fatalf("seed readings: %v", err)
	}
}

func TestHourlyAggregation(t *testing.T) {
	f := newFixture(t)
	hour := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	f.seed(t, "pt-1", map[time.Time]float64{
		hour:                       10,
		hour.Add(20 * time.Minute): 20,
		hour.Add(50 * time.Minute): 30,
	})

	result, err := f.service.Aggregate(context.Background(), Request{
		DeviceID:    "dev-1",
		DataPointID: "pt-1",
		Start:       hour,
		End:         hour.Add(time.Hour),
		Granularity: analytics.GranularityHourly,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.RecordsCreated != 1 || result.RecordsUpdated != 0 {
		t.Fatalf("created=%d updated=%d, want 1/0", result.RecordsCreated, result.RecordsUpdated)
	}

	bucket, err := f.buckets.FindByPointAndStart(context.Background(), analytics.GranularityHourly, "pt-1", hour)
	if err != nil {
		t.Fatalf("FindByPointAndStart: %v", err)
	}
	if bucket == nil {
		t.Fatal("bucket not written")
	}
	if bucket.Count != 3 || bucket.Min != 10 || bucket.Max != 30 || bucket.Sum != 60 || bucket.Avg != 20 {
		t.Fatalf("bucket = %+v", bucket)
	}
}

func TestAggregationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	hour := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	f.seed(t, "pt-1", map[time.Time]float64{
		hour:                       10,
		hour.Add(30 * time.Minute): 30,
	})

	req := Request{
		DeviceID:    "dev-1",
		DataPointID: "pt-1",
		Start:       hour,
		End:         hour.Add(time.Hour),
		Granularity: analytics.GranularityHourly,
	}

	first, err := f.service.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := f.service.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.RecordsCreated != 1 {
		t.Fatalf("first created = %d, want 1", first.RecordsCreated)
	}
	if second.RecordsCreated != 0 || second.RecordsUpdated != 1 {
		t.Fatalf("second created=%d updated=%d, want 0/1", second.RecordsCreated, second.RecordsUpdated)
	}

	bucket, _ := f.buckets.FindByPointAndStart(context.Background(), analytics.GranularityHourly, "pt-1", hour)
	if bucket.Count != 2 || bucket.Sum != 40 {
		t.Fatalf("reprocessing must not double count: %+v", bucket)
	}
}

func TestSplitRangeMatchesSingleRun(t *testing.T) {
	f := newFixture(t)
	hour := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	f.seed(t, "pt-1", map[time.Time]float64{
		hour.Add(10 * time.Minute): 5,
		hour.Add(40 * time.Minute): 15,
	})

	// Two runs covering halves of the same hour window.
	for _, span := range [][2]time.Time{
		{hour, hour.Add(30 * time.Minute)},
		{hour.Add(30 * time.Minute), hour.Add(time.Hour)},
	} {
		if _, err := f.service.Aggregate(context.Background(), Request{
			DeviceID:    "dev-1",
			DataPointID: "pt-1",
			Start:       span[0],
			End:         span[1],
			Granularity: analytics.GranularityHourly,
		}); err != nil {
			t.Fatalf("Aggregate %v: %v", span, err)
		}
	}

	bucket, _ := f.buckets.FindByPointAndStart(context.Background(), analytics.GranularityHourly, "pt-1", hour)
	if bucket == nil {
		t.Fatal("bucket not written")
	}
	if bucket.Count != 2 || bucket.Sum != 20 {
		t.Fatalf("partial-range runs must converge to the full window: %+v", bucket)
	}
}

func TestDailyAggregation(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	f.seed(t, "pt-1", map[time.Time]float64{
		day.Add(2 * time.Hour):  100,
		day.Add(13 * time.Hour): 200,
		day.Add(23 * time.Hour): 60,
	})

	result, err := f.service.Aggregate(context.Background(), Request{
		DeviceID:    "dev-1",
		Start:       day,
		End:         day.AddDate(0, 0, 1),
		Granularity: analytics.GranularityDaily,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.RecordsCreated != 1 {
		t.Fatalf("created = %d, want 1", result.RecordsCreated)
	}

	bucket, _ := f.buckets.FindByPointAndStart(context.Background(), analytics.GranularityDaily, "pt-1", day)
	if bucket.Count != 3 || bucket.Min != 60 || bucket.Max != 200 || bucket.Sum != 360 || bucket.Avg != 120 {
		t.Fatalf("bucket = %+v", bucket)
	}
}

func TestEmptyWindowWritesNothing(t *testing.T) {
	f := newFixture(t)
	hour := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	result, err := f.service.Aggregate(context.Background(), Request{
		DeviceID:    "dev-1",
		DataPointID: "pt-1",
		Start:       hour,
		End:         hour.Add(time.Hour),
		Granularity: analytics.GranularityHourly,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.RecordsCreated != 0 || result.RecordsUpdated != 0 {
		t.Fatalf("empty window wrote buckets: %+v", result)
	}
	bucket, _ := f.buckets.FindByPointAndStart(context.Background(), analytics.GranularityHourly, "pt-1", hour)
	if bucket != nil {
		t.Fatalf("unexpected bucket: %+v", bucket)
	}
}

func TestInvalidGranularity(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := f.service.Aggregate(context.Background(), Request{
		DeviceID:    "dev-1",
		Start:       start,
		End:         start.Add(time.Hour),
		Granularity: "weekly",
	})
	if !errors.Is(err, analytics.ErrInvalidGranularity) {
		t.Fatalf("err = %v, want ErrInvalidGranularity", err)
	}
}

func TestInvalidRange(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := f.service.Aggregate(context.Background(), Request{
		DeviceID:    "dev-1",
		Start:       start,
		End:         start,
		Granularity: analytics.GranularityHourly,
	})
	if !errors.Is(err, analytics.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

type failingQuery struct {
	inner   readings.Query
	failFor string
}

func (q *failingQuery) QueryRange(ctx context.Context, dataPointID string, start, end time.Time) ([]readings.Reading, error) {
	if dataPointID == q.failFor {
		return nil, errors.New("store unavailable")
	}
	return q.inner.QueryRange(ctx, dataPointID, start, end)
}

func TestPointFailureDoesNotAbortRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.catalog.Points().Save(ctx, &catalog.DataPoint{
		ID:        "pt-2",
		Code:      "voltage",
		DeviceID:  "dev-1",
		StationID: "st-1",
		Enabled:   true,
	}); err != nil {
		t.Fatalf("seed point: %v", err)
	}
	hour := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	f.seed(t, "pt-2", map[time.Time]float64{hour: 230})

	svc, err := NewService(f.buckets, &failingQuery{inner: f.readings, failFor: "pt-1"}, f.catalog.Points(), log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.Aggregate(ctx, Request{
		DeviceID:    "dev-1",
		Start:       hour,
		End:         hour.Add(time.Hour),
		Granularity: analytics.GranularityHourly,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "pt-1" {
		t.Fatalf("failed = %v, want [pt-1]", result.Failed)
	}
	if result.RecordsCreated != 1 {
		t.Fatalf("healthy point must still be rolled up: %+v", result)
	}
}
