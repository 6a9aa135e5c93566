package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/pipeline"
)

// Handler serves the analysis and lookup endpoints
type Handler struct {
	logger   *observability.Logger
	cfg      Config
	analyzer DeckAnalyzer
	lookup   FounderLookup
}

// NewHandler creates a new API handler.
func NewHandler(logger *observability.Logger, cfg Config, analyzer DeckAnalyzer, lookup FounderLookup) *Handler {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Handler{
		logger:   logger,
		cfg:      cfg,
		analyzer: analyzer,
		lookup:   lookup,
	}
}

// AnalyzeResponse is the body of a successful analysis
type AnalyzeResponse struct {
	*pipeline.Result
	Filename   string `json:"filename"`
	DurationMS int64  `json:"duration_ms"`
}

// LookupRequest is the body of a founder lookup
type LookupRequest struct {
	Names []string `json:"names"`
}

// LookupResponse is the body of a successful founder lookup
type LookupResponse struct {
	Results []domain.FounderLookupResult `json:"results"`
}

// Analyze handles POST /api/v1/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "file too large", err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file is required", err.Error())
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		h.writeError(w, http.StatusBadRequest, "only PDF files are supported", header.Filename)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read upload", err.Error())
		return
	}

	forceOCR, err := formBool(r, "force_ocr", h.cfg.DefaultForceOCR)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid force_ocr", err.Error())
		return
	}
	lookupFounders, err := formBool(r, "lookup_founders", h.cfg.DefaultLookupFounders)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid lookup_founders", err.Error())
		return
	}

	h.logger.WithContext(r.Context()).Info().
		Str("filename", header.Filename).
		Int("bytes", len(data)).
		Bool("force_ocr", forceOCR).
		Bool("lookup_founders", lookupFounders).
		Msg("Starting deck analysis")

	result, err := h.analyzer.Analyze(r.Context(), pipeline.Request{
		Source:         domain.Source{Data: data, Name: header.Filename},
		ForceOCR:       forceOCR,
		LookupFounders: lookupFounders,
		Instruction:    r.FormValue("instruction"),
	}, nil)
	if err != nil {
		h.writeStageError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Result:     result,
		Filename:   header.Filename,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// LookupFounders handles POST /api/v1/founders/lookup.
func (h *Handler) LookupFounders(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Names == nil {
		h.writeError(w, http.StatusBadRequest, "names is required", "")
		return
	}

	results, err := h.lookup.Lookup(r.Context(), req.Names)
	if err != nil {
		if domain.IsType(err, domain.ErrorTypeValidation) {
			h.writeError(w, http.StatusBadRequest, "invalid founder list", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "founder lookup failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, LookupResponse{Results: results})
}

// writeStageError maps a failed request to a status that names the stage
func (h *Handler) writeStageError(ctx context.Context, w http.ResponseWriter, err error) {
	stage := "request"
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case domain.IsType(err, domain.ErrorTypeValidation):
		status = http.StatusBadRequest
	case stage == pipeline.StageAnalysis:
		status = http.StatusUnprocessableEntity
	case stage == pipeline.StageExtraction:
		status = http.StatusBadGateway
	}

	h.logger.WithContext(ctx).Error().
		Err(err).
		Str("stage", stage).
		Int("status", status).
		Msg("Deck analysis failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  stage + " failed",
		"stage":  stage,
		"detail": err.Error(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}

func formBool(r *http.Request, key string, def bool) (bool, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}
