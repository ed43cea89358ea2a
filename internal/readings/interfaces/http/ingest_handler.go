package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	catalog "scada-cloud/internal/catalog/domain"
	"scada-cloud/internal/eventing"
	"scada-cloud/internal/observability/metrics"
	"scada-cloud/internal/readings/application/events"
	readings "scada-cloud/internal/readings/domain"
)

// IngestHandler accepts batches of raw readings from field gateways.
type IngestHandler struct {
	repo    readings.Repository
	devices catalog.DeviceRepository
	bus     eventing.EventBus
	logger  *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(repo readings.Repository, devices catalog.DeviceRepository, bus eventing.EventBus, logger *log.Logger) (*IngestHandler, error) {
	if repo == nil {
		return nil, errors.New("readings ingest: nil repository")
	}
	if devices == nil {
		return nil, errors.New("readings ingest: nil device repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{repo: repo, devices: devices, bus: bus, logger: logger}, nil
}

// ServeHTTP handles POST /ingest/readings.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("readings ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("readings ingest: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	batch, err := req.toReadings()
	if err != nil {
		h.logger.Printf("readings ingest: invalid payload: %v", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	device, err := h.devices.Get(r.Context(), req.DeviceID)
	if err != nil {
		h.logger.Printf("readings ingest: device lookup error: %v", err)
		http.Error(w, "device lookup error", http.StatusInternalServerError)
		return
	}
	if device == nil {
		http.Error(w, "unknown device", http.StatusNotFound)
		return
	}

	if err := h.repo.Insert(r.Context(), batch); err != nil {
		metrics.IncIngest("error")
		h.logger.Printf("readings ingest: insert error: %v", err)
		http.Error(w, "insert error", http.StatusInternalServerError)
		return
	}
	metrics.IncIngest("success")

	if h.bus != nil {
		for _, reading := range batch {
			event := &events.ReadingReceived{
				EventID:     eventing.NewEventID(),
				StationID:   device.StationID,
				DeviceID:    reading.DeviceID,
				DataPointID: reading.DataPointID,
				TS:          reading.TS,
				Value:       reading.Value,
				Quality:     reading.Quality,
				OccurredAt:  time.Now().UTC(),
			}
			if err := h.bus.Publish(r.Context(), event); err != nil {
				h.logger.Printf("readings ingest: publish error: %v", err)
			}
		}
	}

	resp := map[string]any{"success": true, "inserted": len(batch)}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type ingestRequest struct {
	DeviceID string         `json:"deviceId"`
	Readings []ingestedItem `json:"readings"`
}

type ingestedItem struct {
	DataPointID string  `json:"dataPointId"`
	Timestamp   string  `json:"timestamp"`
	Value       float64 `json:"value"`
	Quality     string  `json:"quality"`
}

func (r ingestRequest) toReadings() ([]readings.Reading, error) {
	if r.DeviceID == "" {
		return nil, errors.New("missing deviceId")
	}
	if len(r.Readings) == 0 {
		return nil, errors.New("no readings")
	}

	batch := make([]readings.Reading, 0, len(r.Readings))
	for _, item := range r.Readings {
		if item.DataPointID == "" {
			return nil, errors.New("missing dataPointId")
		}
		ts, err := time.Parse(time.RFC3339, item.Timestamp)
		if err != nil {
			return nil, err
		}
		quality := item.Quality
		if quality == "" {
			quality = readings.QualityGood
		}
		batch = append(batch, readings.Reading{
			DataPointID: item.DataPointID,
			DeviceID:    r.DeviceID,
			TS:          ts.UTC(),
			Value:       item.Value,
			Quality:     quality,
		})
	}
	return batch, nil
}
