package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	analyticsapp "scada-cloud/internal/analytics/application"
	analytics "scada-cloud/internal/analytics/domain"
	catalog "scada-cloud/internal/catalog/domain"
)

// Handler provides aggregation and bucket query endpoints.
type Handler struct {
	service *analyticsapp.Service
	buckets analytics.BucketRepository
}

// NewHandler constructs a handler.
func NewHandler(service *analyticsapp.Service, buckets analytics.BucketRepository) (*Handler, error) {
	if service == nil {
		return nil, errors.New("analytics handler: nil service")
	}
	if buckets == nil {
		return nil, errors.New("analytics handler: nil bucket repository")
	}
	return &Handler{service: service, buckets: buckets}, nil
}

// HandleAggregate handles POST /api/v1/analytics/aggregate. The run is
// synchronous; an empty range reports zero counts and still succeeds.
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		DeviceID    string `json:"device_id"`
		DataPointID string `json:"data_point_id"`
		Start       string `json:"start"`
		End         string `json:"end"`
		Granularity string `json:"granularity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		http.Error(w, "start must be RFC3339", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		http.Error(w, "end must be RFC3339", http.StatusBadRequest)
		return
	}

	result, err := h.service.Aggregate(r.Context(), analyticsapp.Request{
		DeviceID:    req.DeviceID,
		DataPointID: req.DataPointID,
		Start:       start,
		End:         end,
		Granularity: analytics.Granularity(req.Granularity),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Success        bool     `json:"success"`
		Message        string   `json:"message"`
		RecordsCreated int      `json:"records_created"`
		RecordsUpdated int      `json:"records_updated"`
		Failed         []string `json:"failed,omitempty"`
	}{
		Success:        len(result.Failed) == 0,
		Message:        aggregateMessage(result),
		RecordsCreated: result.RecordsCreated,
		RecordsUpdated: result.RecordsUpdated,
		Failed:         result.Failed,
	})
}

func aggregateMessage(result analyticsapp.Result) string {
	if len(result.Failed) > 0 {
		return fmt.Sprintf("aggregation completed with %d failed data points", len(result.Failed))
	}
	return "aggregation completed"
}

// HandleListBuckets handles GET /api/v1/analytics/buckets.
func (h *Handler) HandleListBuckets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	granularity, filter, err := parseBucketQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, total, err := h.buckets.List(r.Context(), granularity, filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []analytics.Bucket{}
	}

	totalPages := 0
	if filter.Limit > 0 {
		totalPages = (total + filter.Limit - 1) / filter.Limit
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Items      []analytics.Bucket `json:"items"`
		Total      int                `json:"total"`
		Page       int                `json:"page"`
		Limit      int                `json:"limit"`
		TotalPages int                `json:"total_pages"`
	}{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	})
}

// HandleExportBuckets handles GET /api/v1/exports/buckets.xlsx and
// /api/v1/exports/buckets.pdf; the path suffix picks the format.
func (h *Handler) HandleExportBuckets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	granularity, filter, err := parseBucketQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Exports ignore pagination and cap the row count instead.
	filter.Page = 1
	filter.Limit = maxExportRows

	items, _, err := h.buckets.List(r.Context(), granularity, filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("buckets-%s-%s", granularity, time.Now().UTC().Format("20060102150405"))
	switch exportFormat(r) {
	case "xlsx":
		payload, err := BuildBucketsXLSX(granularity, filter, items)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))
		_, _ = w.Write(payload)
	case "pdf":
		payload, err := BuildBucketsPDF(granularity, filter, items)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		_, _ = w.Write(payload)
	default:
		http.Error(w, "format must be xlsx or pdf", http.StatusBadRequest)
	}
}

const maxExportRows = 10000

func exportFormat(r *http.Request) string {
	switch {
	case strings.HasSuffix(r.URL.Path, ".xlsx"):
		return "xlsx"
	case strings.HasSuffix(r.URL.Path, ".pdf"):
		return "pdf"
	default:
		return r.URL.Query().Get("format")
	}
}

func parseBucketQuery(r *http.Request) (analytics.Granularity, analytics.BucketFilter, error) {
	q := r.URL.Query()

	granularity := analytics.Granularity(q.Get("granularity"))
	if !granularity.IsValid() {
		return "", analytics.BucketFilter{}, analytics.ErrInvalidGranularity
	}

	filter := analytics.BucketFilter{
		DeviceID:    q.Get("device_id"),
		DataPointID: q.Get("data_point_id"),
		Page:        1,
		Limit:       50,
	}
	if filter.DeviceID == "" && filter.DataPointID == "" {
		return "", analytics.BucketFilter{}, errors.New("device_id or data_point_id is required")
	}

	if v := q.Get("start"); v != "" {
		start, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", analytics.BucketFilter{}, errors.New("start must be RFC3339")
		}
		filter.Start = start
	}
	if v := q.Get("end"); v != "" {
		end, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", analytics.BucketFilter{}, errors.New("end must be RFC3339")
		}
		filter.End = end
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && !filter.End.After(filter.Start) {
		return "", analytics.BucketFilter{}, analytics.ErrInvalidRange
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return "", analytics.BucketFilter{}, errors.New("page must be a positive integer")
		}
		filter.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			return "", analytics.BucketFilter{}, errors.New("limit must be between 1 and 500")
		}
		filter.Limit = limit
	}
	return granularity, filter, nil
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidGranularity), errors.Is(err, analytics.ErrInvalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, catalog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
