package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pathodex/internal/core"
	"pathodex/internal/ingest"
	"pathodex/pkg/domain"
)

// Service exposes the catalog operations the HTTP surface needs.
type Service interface {
	Filter(ctx context.Context, state core.FilterState) (core.View, error)
	Summary(ctx context.Context, state core.FilterState) (core.Summary, error)
	Get(code string) (domain.Disease, bool)
	Categories() []string
	ListExports(ctx context.Context) ([]domain.ExportRecord, error)
}

// Handler provides HTTP access to the disease catalog, summaries, and exports.
type Handler struct {
	Service Service
	Exports ExportScheduler
}

// NewHandler constructs an explorer HTTP handler.
func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "explorer service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "" && r.Method == http.MethodGet:
		h.handleUI(w, r)
		return
	case path == "/healthz" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	case path == "/api/v1/diseases" && r.Method == http.MethodGet:
		h.handleList(w, r)
		return
	case strings.HasPrefix(path, "/api/v1/diseases/") && r.Method == http.MethodGet:
		h.handleDetail(w, r, strings.TrimPrefix(path, "/api/v1/diseases/"))
		return
	case path == "/api/v1/categories" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"categories": h.Service.Categories()})
		return
	case path == "/api/v1/summary" && r.Method == http.MethodGet:
		h.handleSummary(w, r)
		return
	case strings.HasPrefix(path, "/api/v1/exports"):
		if h.Exports == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r, path)
		return
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	state, err := parseFilterState(r, core.DefaultMaxRows)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.Service.Filter(r.Context(), state)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch negotiateFormat(r) {
	case domain.FormatCSV:
		streamCSV(w, view)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"view": view})
	}
}

func (h *Handler) handleDetail(w http.ResponseWriter, _ *http.Request, code string) {
	if code == "" {
		writeError(w, http.StatusNotFound, "disease not found")
		return
	}
	disease, ok := h.Service.Get(code)
	if !ok {
		writeError(w, http.StatusNotFound, "disease not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"disease": disease})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	// Summaries cover every match; the display row limit does not apply.
	state, err := parseFilterState(r, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.Service.Summary(r.Context(), state)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

type exportRequest struct {
	Filter      core.FilterState `json:"filter"`
	Formats     []string         `json:"formats"`
	RequestedBy string           `json:"requested_by"`
	Reason      string           `json:"reason"`
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, path string) {
	if path == "/api/v1/exports" {
		switch r.Method {
		case http.MethodPost:
			h.handleExportCreate(w, r)
		case http.MethodGet:
			records, err := h.Service.ListExports(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"exports": records})
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if !strings.HasPrefix(path, "/api/v1/exports/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(path, "/api/v1/exports/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	record, ok := h.Exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	// An empty body requests a full-catalog export in the default formats.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}

	formats := make([]domain.Format, 0, len(req.Formats))
	for _, f := range req.Formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "csv":
			formats = append(formats, domain.FormatCSV)
		case "json":
			formats = append(formats, domain.FormatJSON)
		case "html":
			formats = append(formats, domain.FormatHTML)
		default:
			writeError(w, http.StatusBadRequest, "unsupported export format")
			return
		}
	}

	record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
		Filter:      req.Filter,
		Formats:     formats,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

// parseFilterState builds a FilterState from query parameters. defaultLimit
// applies when no limit parameter is present; limit=0 requests all rows.
func parseFilterState(r *http.Request, defaultLimit int) (core.FilterState, error) {
	query := r.URL.Query()
	state := core.FilterState{
		Search:  strings.TrimSpace(query.Get("q")),
		MaxRows: defaultLimit,
	}

	var err error
	if state.Contagious, err = parseTriState(query.Get("contagious")); err != nil {
		return core.FilterState{}, fmt.Errorf("contagious: %w", err)
	}
	if state.Chronic, err = parseTriState(query.Get("chronic")); err != nil {
		return core.FilterState{}, fmt.Errorf("chronic: %w", err)
	}

	for _, category := range query["category"] {
		if trimmed := strings.TrimSpace(category); trimmed != "" {
			state.Categories = append(state.Categories, trimmed)
		}
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return core.FilterState{}, fmt.Errorf("limit: invalid integer %q", raw)
		}
		if limit < 0 {
			return core.FilterState{}, fmt.Errorf("limit: must not be negative")
		}
		state.MaxRows = limit
	}

	return state, nil
}

func parseTriState(raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return nil, nil
	case "true", "yes", "1":
		v := true
		return &v, nil
	case "false", "no", "0":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("invalid value %q", raw)
	}
}

func negotiateFormat(r *http.Request) domain.Format {
	wanted := strings.ToLower(r.URL.Query().Get("format"))
	if wanted == "" {
		if strings.Contains(r.Header.Get("Accept"), "text/csv") {
			wanted = string(domain.FormatCSV)
		} else {
			wanted = string(domain.FormatJSON)
		}
	}
	if wanted == string(domain.FormatCSV) {
		return domain.FormatCSV
	}
	return domain.FormatJSON
}

func streamCSV(w http.ResponseWriter, view core.View) {
	filename := fmt.Sprintf("filtered_diseases-%s.csv", time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	_ = ingest.Write(w, view.Diseases)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
