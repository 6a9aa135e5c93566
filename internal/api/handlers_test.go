package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	req    pipeline.Request
	result *pipeline.Result
	err    error
	ctxID  string
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req pipeline.Request, eventCh chan<- domain.StreamEvent) (*pipeline.Result, error) {
	a.req = req
	a.ctxID = observability.TraceIDFromContext(ctx)
	return a.result, a.err
}

type fakeLookup struct {
	names []string
}

func (l *fakeLookup) Lookup(ctx context.Context, names []string) ([]domain.FounderLookupResult, error) {
	if names == nil {
		return nil, domain.ValidationError("Founder list is missing", nil)
	}
	l.names = names
	out := make([]domain.FounderLookupResult, len(names))
	for i, n := range names {
		out[i] = domain.FounderLookupResult{Name: n, Status: domain.LookupNotFound}
	}
	return out, nil
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestRouter(analyzer DeckAnalyzer, lookup FounderLookup) http.Handler {
	return NewRouter(observability.Nop(), Config{DefaultLookupFounders: true, Version: "test"}, analyzer, lookup)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeAnalyzer{}, &fakeLookup{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"pitchdeck-analyzer"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAnalyze(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &pipeline.Result{
		RequestID:     "r-1",
		Record:        &domain.StructuredRecord{StartupName: "Airbnb", Founders: []string{"Brian Chesky"}},
		Pages:         []domain.Page{{Index: 0, Method: domain.MethodOCRFailed, Error: "[ocr] rejected"}},
		FounderLookup: pipeline.LookupDisabled,
	}}

	body, contentType := multipartBody(t, "airbnb.pdf", []byte("%PDF-1.4"), map[string]string{
		"force_ocr":       "true",
		"lookup_founders": "false",
		"instruction":     "focus on traction",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(analyzer, &fakeLookup{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, analyzer.req.ForceOCR)
	assert.False(t, analyzer.req.LookupFounders)
	assert.Equal(t, "focus on traction", analyzer.req.Instruction)
	assert.Equal(t, "airbnb.pdf", analyzer.req.Source.Name)
	assert.Equal(t, []byte("%PDF-1.4"), analyzer.req.Source.Data)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), analyzer.ctxID)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "airbnb.pdf", resp["filename"])
	assert.Equal(t, "disabled", resp["founder_lookup"])
	record := resp["record"].(map[string]any)
	assert.Equal(t, []any{"Brian Chesky"}, record["founders"])
	assert.NotContains(t, record, "founder_lookups")
	pages := resp["pages"].([]any)
	assert.Equal(t, "ocr_failed", pages[0].(map[string]any)["method"])
}

func TestAnalyze_DefaultsFromConfig(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &pipeline.Result{Record: &domain.StructuredRecord{}}}
	body, contentType := multipartBody(t, "deck.PDF", []byte("%PDF-1.4"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(analyzer, &fakeLookup{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, analyzer.req.ForceOCR)
	assert.True(t, analyzer.req.LookupFounders)
}

func TestAnalyze_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		fields   map[string]string
	}{
		{"missing file", "", nil},
		{"not a pdf", "deck.pptx", nil},
		{"bad flag", "deck.pdf", map[string]string{"force_ocr": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.filename, []byte("%PDF-1.4"), tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			newTestRouter(&fakeAnalyzer{}, &fakeLookup{}).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAnalyze_StageErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		stage  string
	}{
		{"invalid pdf", &pipeline.StageError{Stage: pipeline.StageExtraction, Err: domain.ValidationError("not a PDF", nil)}, http.StatusBadRequest, "extraction"},
		{"all pages failed", &pipeline.StageError{Stage: pipeline.StageExtraction, Err: domain.OCRError("no text", nil)}, http.StatusBadGateway, "extraction"},
		{"analysis", &pipeline.StageError{Stage: pipeline.StageAnalysis, Err: domain.AnalysisError("bad reply", nil)}, http.StatusUnprocessableEntity, "analysis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, "deck.pdf", []byte("%PDF-1.4"), nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			newTestRouter(&fakeAnalyzer{err: tt.err}, &fakeLookup{}).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.stage, resp["stage"])
		})
	}
}

func TestLookupFounders(t *testing.T) {
	lookup := &fakeLookup{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/founders/lookup", strings.NewReader(`{"names": ["Brian Chesky", "Joe Gebbia"]}`))
	rec := httptest.NewRecorder()

	newTestRouter(&fakeAnalyzer{}, lookup).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LookupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Joe Gebbia", resp.Results[1].Name)
	assert.Equal(t, domain.LookupNotFound, resp.Results[1].Status)

	for _, body := range []string{`{}`, `not json`} {
		rec := httptest.NewRecorder()
		newTestRouter(&fakeAnalyzer{}, lookup).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/founders/lookup", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}
