package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"datapulse/internal/alerts"
	"datapulse/internal/analytics"
	"datapulse/internal/dataset"
	"datapulse/internal/errors"
	"datapulse/internal/ingest"
	"datapulse/internal/observability"
	"datapulse/internal/respond"
	"datapulse/internal/schema"
)

// APIHandlers serves the JSON endpoints: query answering, CSV upload,
// dataset management, alerts and ops.
type APIHandlers struct {
	assembler *respond.Assembler
	analyzer  *analytics.Analyzer
	pipeline  *ingest.Pipeline
	store     *dataset.Store
	mappings  *schema.MappingStore
	rules     []alerts.Rule
	maxUpload int64
	logger    *slog.Logger
}

func NewAPIHandlers(
	assembler *respond.Assembler,
	analyzer *analytics.Analyzer,
	pipeline *ingest.Pipeline,
	store *dataset.Store,
	mappings *schema.MappingStore,
	rules []alerts.Rule,
	maxUpload int64,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		assembler: assembler,
		analyzer:  analyzer,
		pipeline:  pipeline,
		store:     store,
		mappings:  mappings,
		rules:     rules,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

// HandleQuery answers one analytics question.
func (h *APIHandlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Request body must be JSON with a \"query\" field"), requestID)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		errors.WriteError(w, h.logger, errors.Validation("Query cannot be empty"), requestID)
		return
	}

	_, span := observability.StartSpan(r.Context(), "answer query")
	span.SetTag("query", req.Query)
	resp := h.assembler.Answer(req.Query)
	span.Finish()

	errors.WriteSuccess(w, resp)
}

// HandleUpload ingests a CSV from a multipart form (field "file").
func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Upload must be multipart form data with a \"file\" field"), requestID)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		errors.WriteError(w, h.logger, errors.UnsupportedFormat("Only CSV files are supported"), requestID)
		return
	}

	report, err := h.pipeline.Ingest(file, header.Filename)
	if err != nil {
		errors.WriteError(w, h.logger, errors.ValidationWrap(err, "Could not parse the uploaded file"), requestID)
		return
	}

	errors.WriteSuccess(w, report)
}

// HandleDatasets lists what is loaded.
func (h *APIHandlers) HandleDatasets(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.store.List())
}

// HandleDeleteDataset removes one dataset by type.
func (h *APIHandlers) HandleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	typ := dataset.Type(r.PathValue("type"))
	if !h.store.Has(typ) {
		errors.WriteError(w, h.logger, errors.NotFound("No such dataset"), requestID)
		return
	}
	h.store.Remove(typ)
	h.logger.Info("dataset removed", "type", typ, "request_id", requestID)
	errors.WriteSuccess(w, map[string]string{"removed": string(typ)})
}

type mappingRequest struct {
	Type   string `json:"type"`
	Field  string `json:"field"`
	Column string `json:"column"`
}

// HandleSetMapping records a manual column override. An empty column
// clears the override and restores auto-detection.
func (h *APIHandlers) HandleSetMapping(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Request body must be JSON"), requestID)
		return
	}
	typ := dataset.Type(req.Type)
	if req.Field == "" {
		errors.WriteError(w, h.logger, errors.Validation("Field is required"), requestID)
		return
	}
	if req.Column != "" && !h.store.Get(typ).HasColumn(req.Column) {
		errors.WriteError(w, h.logger, errors.Validation("Column does not exist in that dataset"), requestID)
		return
	}

	h.mappings.SetOverride(typ, schema.Field(req.Field), req.Column)
	errors.WriteSuccess(w, h.mappings.Get(typ))
}

// HandleMappings returns the effective mapping for a dataset type.
func (h *APIHandlers) HandleMappings(w http.ResponseWriter, r *http.Request) {
	typ := dataset.Type(r.PathValue("type"))
	errors.WriteSuccess(w, h.mappings.Get(typ))
}

// HandleSummary returns the cross-dataset business summary.
func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	res, err := h.analyzer.Summary()
	if err != nil {
		errors.WriteError(w, h.logger, errors.NotFound("No data loaded yet"), requestID)
		return
	}
	errors.WriteSuccess(w, res)
}

// HandleAlerts evaluates the alert rules against current metrics.
func (h *APIHandlers) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	fired := alerts.Evaluate(h.rules, h.analyzer.Metrics(), time.Now())
	errors.WriteSuccess(w, map[string]any{
		"alerts": fired,
		"count":  len(fired),
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

// HandleStats exposes store figures for monitoring.
func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	infos := h.store.List()
	errors.WriteSuccess(w, map[string]any{
		"datasets":   len(infos),
		"total_rows": h.store.TotalRows(),
		"loaded":     infos,
	})
}
