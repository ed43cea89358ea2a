package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	analyticsapp "scada-cloud/internal/analytics/application"
	analytics "scada-cloud/internal/analytics/domain"
	analyticsmem "scada-cloud/internal/analytics/infrastructure/memory"
	catalog "scada-cloud/internal/catalog/domain"
	catalogmem "scada-cloud/internal/catalog/infrastructure/memory"
	readings "scada-cloud/internal/readings/domain"
	readingmem "scada-cloud/internal/readings/infrastructure/memory"
)

func newAnalyticsHandler(t *testing.T) (*Handler, *analyticsmem.BucketRepository) {
	t.Helper()
	ctx := context.Background()

	cat := catalogmem.NewCatalog()
	if err := cat.Devices().Save(ctx, &catalog.Device{
		ID: "dev-1", Code: "PV-01", StationID: "st-1", Status: catalog.DeviceStatusActive,
	}); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	if err := cat.Points().Save(ctx, &catalog.DataPoint{
		ID: "pt-1", Code: "power_kw", DeviceID: "dev-1", StationID: "st-1", Enabled: true,
	}); err != nil {
		t.Fatalf("seed point: %v", err)
	}

	store := readingmem.NewReadingRepository()
	hour := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	if err := store.Insert(ctx, []readings.Reading{
		{DataPointID: "pt-1", DeviceID: "dev-1", TS: hour, Value: 10, Quality: readings.QualityGood},
		{DataPointID: "pt-1", DeviceID: "dev-1", TS: hour.Add(30 * time.Minute), Value: 30, Quality: readings.QualityGood},
	}); err != nil {
		t.Fatalf("seed readings: %v", err)
	}

	buckets := analyticsmem.NewBucketRepository()
	svc, err := analyticsapp.NewService(buckets, store, cat.Points(), log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	handler, err := NewHandler(svc, buckets)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return handler, buckets
}

func runAggregate(t *testing.T, handler *Handler) {
	t.Helper()
	body := `{"device_id": "dev-1", "start": "2026-03-10T10:00:00Z", "end": "2026-03-10T11:00:00Z", "granularity": "hourly"}`
	req := httptest.NewRequest("POST", "/api/v1/analytics/aggregate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleAggregate(rec, req)
	if rec.Code != 200 {
		t.Fatalf("aggregate status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAggregateEndpoint(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)

	body := `{"device_id": "dev-1", "start": "2026-03-10T10:00:00Z", "end": "2026-03-10T11:00:00Z", "granularity": "hourly"}`
	req := httptest.NewRequest("POST", "/api/v1/analytics/aggregate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleAggregate(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success        bool `json:"success"`
		RecordsCreated int  `json:"records_created"`
		RecordsUpdated int  `json:"records_updated"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.RecordsCreated != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestAggregateEmptyRangeSucceedsWithZeroCounts(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)

	body := `{"device_id": "dev-1", "start": "2026-03-12T00:00:00Z", "end": "2026-03-12T01:00:00Z", "granularity": "hourly"}`
	req := httptest.NewRequest("POST", "/api/v1/analytics/aggregate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleAggregate(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Success        bool `json:"success"`
		RecordsCreated int  `json:"records_created"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.Success || resp.RecordsCreated != 0 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestAggregateRejectsBadGranularity(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)

	body := `{"device_id": "dev-1", "start": "2026-03-10T10:00:00Z", "end": "2026-03-10T11:00:00Z", "granularity": "weekly"}`
	req := httptest.NewRequest("POST", "/api/v1/analytics/aggregate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleAggregate(rec, req)
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAggregateUnknownDataPointMapsTo404(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)

	body := `{"data_point_id": "pt-ghost", "start": "2026-03-10T10:00:00Z", "end": "2026-03-10T11:00:00Z", "granularity": "hourly"}`
	req := httptest.NewRequest("POST", "/api/v1/analytics/aggregate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleAggregate(rec, req)
	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListBucketsPaginated(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)
	runAggregate(t, handler)

	req := httptest.NewRequest("GET", "/api/v1/analytics/buckets?granularity=hourly&device_id=dev-1&page=1&limit=10", nil)
	rec := httptest.NewRecorder()
	handler.HandleListBuckets(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Items      []analytics.Bucket `json:"items"`
		Total      int                `json:"total"`
		Page       int                `json:"page"`
		Limit      int                `json:"limit"`
		TotalPages int                `json:"total_pages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 || resp.TotalPages != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	bucket := resp.Items[0]
	if bucket.Count != 2 || bucket.Min != 10 || bucket.Max != 30 {
		t.Fatalf("bucket = %+v", bucket)
	}
}

func TestListBucketsRequiresScope(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/analytics/buckets?granularity=hourly", nil)
	rec := httptest.NewRecorder()
	handler.HandleListBuckets(rec, req)
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExportBucketsXLSX(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)
	runAggregate(t, handler)

	req := httptest.NewRequest("GET", "/api/v1/exports/buckets.xlsx?granularity=hourly&device_id=dev-1", nil)
	rec := httptest.NewRecorder()
	handler.HandleExportBuckets(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type = %s", ct)
	}
	// XLSX containers are zip files.
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatal("xlsx payload missing zip signature")
	}
}

func TestExportBucketsPDF(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)
	runAggregate(t, handler)

	req := httptest.NewRequest("GET", "/api/v1/exports/buckets.pdf?granularity=hourly&device_id=dev-1", nil)
	rec := httptest.NewRecorder()
	handler.HandleExportBuckets(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("pdf payload missing header")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	handler, _ := newAnalyticsHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/exports/buckets.csv?granularity=hourly&device_id=dev-1", nil)
	rec := httptest.NewRecorder()
	handler.HandleExportBuckets(rec, req)
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
