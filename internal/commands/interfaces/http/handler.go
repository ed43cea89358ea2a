package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"scada-cloud/internal/auth"
	catalog "scada-cloud/internal/catalog/domain"
	commandapp "scada-cloud/internal/commands/application"
	commands "scada-cloud/internal/commands/domain"
)

// Handler provides command HTTP endpoints.
type Handler struct {
	service *commandapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *commandapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("commands handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/commands and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/commands":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/commands/"):
		h.handleAction(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
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

	list, err := h.service.List(r.Context(), deviceID, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID    string          `json:"device_id"`
		CommandType string          `json:"command_type"`
		Payload     json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	cmd, err := h.service.Create(r.Context(), commandapp.CreateRequest{
		DeviceID:    req.DeviceID,
		CommandType: req.CommandType,
		Payload:     req.Payload,
		RequestedBy: requestUser(r),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(cmd)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/commands/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]
	action := parts[1]

	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	var (
		cmd *commands.Command
		err error
	)
	switch action {
	case "approve":
		cmd, err = h.service.Approve(r.Context(), id, requestUser(r))
	case "reject":
		cmd, err = h.service.Reject(r.Context(), id, requestUser(r), body.Reason)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cmd)
}

func requestUser(r *http.Request) string {
	if userID := auth.UserIDFromContext(r.Context()); userID != "" {
		return userID
	}
	return "operator"
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, commands.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, commands.ErrInvalidState):
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
