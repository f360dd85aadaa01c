package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/aggregation"
	"github.com/searchlab/keyword-insights/internal/models"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const (
	defaultTopLimit    = 20
	maxTopLimit        = 200
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	maxSearchTermLen   = 100
)

type Handler struct {
	service *aggregation.Service
	logger  *zap.Logger
}

func NewHandler(service *aggregation.Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type groupRequest struct {
	Records    []recordPayload `json:"records"`
	ForceFresh bool            `json:"force_fresh"`
}

type recordPayload struct {
	Query       string `json:"query"`
	Counts      int64  `json:"counts"`
	Clicks      int64  `json:"clicks"`
	Conversions int64  `json:"conversions"`
}

// groupView is a KeywordGroup with its derived rates materialized for the
// response. Rates are percentages; share is relative to the whole run.
type groupView struct {
	Key              string   `json:"group_key"`
	TotalCounts      int64    `json:"total_counts"`
	TotalClicks      int64    `json:"total_clicks"`
	TotalConversions int64    `json:"total_conversions"`
	AvgCTR           float64  `json:"avg_ctr"`
	ClassicCR        float64  `json:"classic_cr"`
	HealthCR         float64  `json:"health_cr"`
	SharePct         float64  `json:"share_pct"`
	Variations       []string `json:"variations"`
	SourceQueries    []string `json:"source_queries"`
}

type groupingResponse struct {
	Groups      []groupView           `json:"groups"`
	TotalCounts int64                 `json:"total_counts"`
	RecordCount int                   `json:"record_count"`
	TokenCount  int                   `json:"token_count"`
	TookMs      int64                 `json:"took_ms"`
	Source      string                `json:"source"`
	Metadata    models.ResultMetadata `json:"metadata"`
}

func (h *Handler) Group(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)

	req, err := h.parseGroupRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Records) == 0 {
		h.writeError(w, http.StatusBadRequest, "missing_records", "Request body must contain a non-empty 'records' array")
		return
	}

	records := make([]models.QueryRecord, len(req.Records))
	for i, rec := range req.Records {
		records[i] = models.QueryRecord{
			Text:        rec.Query,
			Count:       rec.Counts,
			Clicks:      rec.Clicks,
			Conversions: rec.Conversions,
		}
	}

	result, err := h.service.GroupRecords(ctx, records, "api", req.ForceFresh)
	if err != nil {
		if errors.Is(err, aggregation.ErrDatasetTooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "dataset_too_large", err.Error())
			return
		}
		h.logger.Error("grouping failed",
			zap.String("request_id", requestID),
			zap.Int("records", len(records)),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "grouping_error", "Grouping service temporarily unavailable")
		return
	}

	result.Metadata.RequestID = requestID
	h.writeJSON(w, http.StatusOK, buildGroupingResponse(result))
}

// GroupFromStore serves the bodyless GET form: it re-groups the query log
// already accumulated in the analytics store. An optional 'window' duration
// parameter bounds the log; zero or absent covers the whole log.
func (h *Handler) GroupFromStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)

	window, err := parseWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
		return
	}
	forceFresh := r.URL.Query().Get("force_fresh") == "true"

	result, err := h.service.GroupFromStore(ctx, window, forceFresh)
	if err != nil {
		if errors.Is(err, aggregation.ErrStoreUnavailable) {
			h.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Analytics store is not configured")
			return
		}
		h.logger.Error("store grouping failed",
			zap.String("request_id", requestID),
			zap.Duration("window", window),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "grouping_error", "Grouping service temporarily unavailable")
		return
	}

	result.Metadata.RequestID = requestID
	h.writeJSON(w, http.StatusOK, buildGroupingResponse(result))
}

func buildGroupingResponse(result *models.GroupingResult) groupingResponse {
	views := make([]groupView, len(result.Groups))
	for i, g := range result.Groups {
		views[i] = groupView{
			Key:              g.Key,
			TotalCounts:      g.TotalCounts,
			TotalClicks:      g.TotalClicks,
			TotalConversions: g.TotalConversions,
			AvgCTR:           g.AvgCTR(),
			ClassicCR:        g.ClassicCR(),
			HealthCR:         g.HealthCR(),
			SharePct:         g.Share(result.TotalCounts),
			Variations:       g.Variations,
			SourceQueries:    g.SourceQueries,
		}
	}

	return groupingResponse{
		Groups:      views,
		TotalCounts: result.TotalCounts,
		RecordCount: result.RecordCount,
		TokenCount:  result.TokenCount,
		TookMs:      result.TookMs,
		Source:      result.Source,
		Metadata:    result.Metadata,
	}
}

func (h *Handler) Top(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := parseLimit(r.URL.Query().Get("limit"), defaultTopLimit, maxTopLimit)

	top, err := h.service.TopKeywords(ctx, limit)
	if err != nil {
		h.logger.Error("top keywords failed",
			zap.String("request_id", RequestIDFromContext(ctx)),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "storage_error", "Top keywords temporarily unavailable")
		return
	}
	if top == nil {
		top = []models.TopKeyword{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"keywords": top,
		"limit":    limit,
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	term := r.URL.Query().Get("q")
	if term == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}
	if runes := []rune(term); len(runes) > maxSearchTermLen {
		term = string(runes[:maxSearchTermLen])
	}
	limit := parseLimit(r.URL.Query().Get("limit"), defaultSearchLimit, maxSearchLimit)

	hits, err := h.service.SearchVariants(ctx, term, limit)
	if err != nil {
		h.logger.Error("variant search failed",
			zap.String("request_id", RequestIDFromContext(ctx)),
			zap.String("term", term),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "search_error", "Variant search temporarily unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"term":  term,
		"hits":  hits,
		"count": len(hits),
	})
}

func (h *Handler) parseGroupRequest(r *http.Request) (*groupRequest, error) {
	var req groupRequest
	limited := io.LimitReader(r.Body, maxRequestBodySize)
	if err := json.NewDecoder(limited).Decode(&req); err != nil {
		return nil, err
	}

	if r.URL.Query().Get("force_fresh") == "true" {
		req.ForceFresh = true
	}

	return &req, nil
}

func parseWindow(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	window, err := time.ParseDuration(raw)
	if err != nil || window < 0 {
		return 0, fmt.Errorf("window must be a non-negative duration such as 24h")
	}
	return window, nil
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("writing json response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
