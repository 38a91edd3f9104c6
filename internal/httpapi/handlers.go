package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediacache/internal/api"
	"mediacache/internal/logging"
	"mediacache/internal/logs"
	"mediacache/internal/mediacache"
	"mediacache/internal/processor"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	defaultLogLimit  = 200
	maxLogLimit      = 5000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.lastRun == nil {
		s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
		return
	}
	report, err := processor.CheckLastRun(r.Context(), s.lastRun, s.now(), s.maxAge)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := api.HealthResponse{Status: "ok", Problems: report.Problems}
	if !report.LastRun.IsZero() {
		resp.LastRun = api.FormatTime(report.LastRun)
	}
	status := http.StatusOK
	if !report.Healthy() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.items.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.items.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []api.CacheItem{}
	}
	s.writeJSON(w, http.StatusOK, api.ItemListResponse{Items: items})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	item, err := s.items.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "cache item not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ItemResponse{Item: *item})
}

// handleLogs pages through the log file. Without an offset it returns the
// newest lines; clients pass the returned offset back to continue.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := logs.Options{Offset: -1, Limit: defaultLogLimit, Match: strings.TrimSpace(query.Get("item"))}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid offset %q", raw))
			return
		}
		opts.Offset = offset
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		opts.Limit = min(limit, maxLogLimit)
	}
	chunk, err := logs.Read(r.Context(), s.logPath, opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	lines := chunk.Lines
	if lines == nil {
		lines = []string{}
	}
	s.writeJSON(w, http.StatusOK, api.LogsResponse{Lines: lines, Offset: chunk.Offset})
}

// parseFilter reads cache_status, queue_status, template, file and limit.
// Status parameters may repeat.
func parseFilter(r *http.Request) (mediacache.Filter, error) {
	query := r.URL.Query()
	filter := mediacache.Filter{
		TemplateKey: strings.TrimSpace(query.Get("template")),
		FileID:      strings.TrimSpace(query.Get("file")),
		Limit:       defaultListLimit,
	}
	for _, value := range query["cache_status"] {
		status, err := mediacache.ParseCacheStatus(value)
		if err != nil {
			return filter, err
		}
		filter.CacheStatuses = append(filter.CacheStatuses, status)
	}
	for _, value := range query["queue_status"] {
		status, err := mediacache.ParseQueueStatus(value)
		if err != nil {
			return filter, err
		}
		filter.QueueStatuses = append(filter.QueueStatuses, status)
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = min(limit, maxListLimit)
	}
	return filter, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
