package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	alarmapp "scada-cloud/internal/alarms/application"
	alarms "scada-cloud/internal/alarms/domain"
	"scada-cloud/internal/auth"
	catalog "scada-cloud/internal/catalog/domain"
)

// Handler provides alarm HTTP endpoints.
type Handler struct {
	service *alarmapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *alarmapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alarms handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/alarms and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/alarms":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleTrigger(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/alarms/"):
		h.handleAction(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	stationID := r.URL.Query().Get("station_id")
	if stationID == "" {
		http.Error(w, "station_id is required", http.StatusBadRequest)
		return
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}
	status := r.URL.Query().Get("status")

	list, err := h.service.List(r.Context(), stationID, status, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RuleID      string  `json:"rule_id"`
		DeviceID    string  `json:"device_id"`
		DataPointID string  `json:"data_point_id"`
		Severity    string  `json:"severity"`
		Value       float64 `json:"value"`
		Notes       string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	alarm, err := h.service.Trigger(r.Context(), alarmapp.TriggerRequest{
		RuleID:      req.RuleID,
		DeviceID:    req.DeviceID,
		DataPointID: req.DataPointID,
		Severity:    req.Severity,
		Value:       req.Value,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(alarm)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alarms/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]
	action := parts[1]

	var body struct {
		Notes string `json:"notes"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	var (
		alarm *alarms.Alarm
		err   error
	)
	switch action {
	case "ack":
		userID := auth.UserIDFromContext(r.Context())
		if userID == "" {
			userID = "operator"
		}
		alarm, err = h.service.Acknowledge(r.Context(), id, userID, body.Notes)
	case "clear":
		alarm, err = h.service.Clear(r.Context(), id, body.Notes)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alarm)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alarms.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, alarms.ErrConflictState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	return time.Parse(time.RFC3339, value)
}
