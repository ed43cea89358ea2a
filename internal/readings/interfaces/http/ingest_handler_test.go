package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	catalog "scada-cloud/internal/catalog/domain"
	catalogmem "scada-cloud/internal/catalog/infrastructure/memory"
	"scada-cloud/internal/eventing"
	"scada-cloud/internal/readings/application/events"
	readingmem "scada-cloud/internal/readings/infrastructure/memory"
)

func newIngestFixture(t *testing.T) (*IngestHandler, *readingmem.ReadingRepository, *eventing.InMemoryBus) {
	t.Helper()

	cat := catalogmem.NewCatalog()
	if err := cat.Devices().Save(context.Background(), &catalog.Device{
		ID:        "dev-1",
		Code:      "PV-01",
		StationID: "st-1",
		Status:    catalog.DeviceStatusActive,
	}); err != nil {
		t.Fatalf("seed device: %v", err)
	}

	repo := readingmem.NewReadingRepository()
	bus := eventing.NewInMemoryBus()
	handler, err := NewIngestHandler(repo, cat.Devices(), bus, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("NewIngestHandler: %v", err)
	}
	return handler, repo, bus
}

func TestIngestInsertsAndPublishes(t *testing.T) {
	handler, repo, bus := newIngestFixture(t)

	var received []*events.ReadingReceived
	bus.Subscribe(eventing.EventTypeOf[events.ReadingReceived](), func(_ context.Context, event any) error {
		received = append(received, event.(*events.ReadingReceived))
		return nil
	})

	body := `{
		"deviceId": "dev-1",
		"readings": [
			{"dataPointId": "pt-1", "timestamp": "2026-03-10T10:00:00Z", "value": 10.5, "quality": "good"},
			{"dataPointId": "pt-1", "timestamp": "2026-03-10T10:05:00Z", "value": 11.0, "quality": "good"}
		]
	}`
	req := httptest.NewRequest("POST", "/ingest/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success  bool `json:"success"`
		Inserted int  `json:"inserted"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Inserted != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(received) != 2 {
		t.Fatalf("expected 2 ReadingReceived events, got %d", len(received))
	}
	if received[0].StationID != "st-1" {
		t.Fatalf("event station = %s", received[0].StationID)
	}

	stored, err := repo.QueryRange(context.Background(), "pt-1",
		received[0].TS.Add(-1), received[1].TS.Add(1))
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored = %d, want 2", len(stored))
	}
}

func TestIngestUnknownDevice(t *testing.T) {
	handler, _, _ := newIngestFixture(t)

	body := `{"deviceId": "ghost", "readings": [{"dataPointId": "pt-1", "timestamp": "2026-03-10T10:00:00Z", "value": 1}]}`
	req := httptest.NewRequest("POST", "/ingest/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestIngestRejectsMalformedPayload(t *testing.T) {
	handler, _, _ := newIngestFixture(t)

	for name, body := range map[string]string{
		"not json":      `{`,
		"no device":     `{"readings": [{"dataPointId": "pt-1", "timestamp": "2026-03-10T10:00:00Z"}]}`,
		"no readings":   `{"deviceId": "dev-1", "readings": []}`,
		"bad timestamp": `{"deviceId": "dev-1", "readings": [{"dataPointId": "pt-1", "timestamp": "yesterday"}]}`,
	} {
		req := httptest.NewRequest("POST", "/ingest/readings", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != 400 {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}
