// Package pipeline runs a full deck analysis request: transcript, structured
// record and optional founder lookup.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
)

// Stage names reported by StageError
const (
	StageExtraction = "extraction"
	StageAnalysis   = "analysis"
	StageLookup     = "founder_lookup"
)

// Founder lookup outcome for a request
const (
	LookupEnabled  = "enabled"
	LookupDisabled = "disabled"
	LookupSkipped  = "skipped"
)

// StageError reports which stage of a request failed
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// TranscriptAssembler builds the deck transcript
type TranscriptAssembler interface {
	Assemble(ctx context.Context, src domain.Source, forceOCR bool, eventCh chan<- domain.StreamEvent) (*domain.DeckTranscript, error)
}

// RecordAnalyzer turns a transcript into a structured record
type RecordAnalyzer interface {
	Analyze(ctx context.Context, transcript, instruction string) (*domain.StructuredRecord, error)
}

// FounderEnricher attaches founder lookups to a record
type FounderEnricher interface {
	Enrich(ctx context.Context, record *domain.StructuredRecord) error
}

// Request is one analysis request
type Request struct {
	Source         domain.Source
	ForceOCR       bool
	LookupFounders bool
	Instruction    string
}

// Result is the outcome of a successful request
type Result struct {
	RequestID     string                   `json:"request_id"`
	Record        *domain.StructuredRecord `json:"record"`
	Pages         []domain.Page            `json:"pages"`
	FounderLookup string                   `json:"founder_lookup"`
	Duration      time.Duration            `json:"-"`
}

// Service composes the pipeline stages
type Service struct {
	assembler TranscriptAssembler
	analyzer  RecordAnalyzer
	enricher  FounderEnricher // nil when lookup credentials are missing
	logger    *observability.Logger
}

// NewService creates a pipeline service. enricher may be nil.
func NewService(assembler TranscriptAssembler, analyzer RecordAnalyzer, enricher FounderEnricher, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Service{
		assembler: assembler,
		analyzer:  analyzer,
		enricher:  enricher,
		logger:    logger.WithOperation("pipeline"),
	}
}

// LookupAvailable reports whether founder lookup can run
func (s *Service) LookupAvailable() bool {
	return s.enricher != nil
}

// Analyze runs the request end to end. Page and founder failures are recorded
// in the result; extraction and analysis failures abort with a StageError.
func (s *Service) Analyze(ctx context.Context, req Request, eventCh chan<- domain.StreamEvent) (*Result, error) {
	start := time.Now()
	requestID := observability.TraceIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = observability.ContextWithTraceID(ctx, requestID)
	}
	logger := s.logger.WithContext(ctx)

	transcript, err := s.assembler.Assemble(ctx, req.Source, req.ForceOCR, eventCh)
	if err != nil {
		return nil, &StageError{Stage: StageExtraction, Err: err}
	}
	if n := len(transcript.Pages); n > 0 && transcript.Count(domain.MethodOCRFailed) == n {
		err := domain.OCRError(fmt.Sprintf("Transcript-level failure: all %d pages failed OCR, nothing to analyze", n), domain.ErrEmptyTranscript)
		return nil, &StageError{Stage: StageExtraction, Err: err}
	}

	emit(eventCh, domain.StreamEvent{Type: domain.EventAnalysis, Payload: "Analyzing deck transcript", Timestamp: time.Now()})
	record, err := s.analyzer.Analyze(ctx, transcript.Text, req.Instruction)
	if err != nil {
		return nil, &StageError{Stage: StageAnalysis, Err: err}
	}

	lookup := LookupDisabled
	if req.LookupFounders {
		lookup = LookupSkipped
		if s.enricher != nil {
			lookup = LookupEnabled
			emit(eventCh, domain.StreamEvent{Type: domain.EventFounderLookup, Payload: record.Founders, Timestamp: time.Now()})
			if err := s.enricher.Enrich(ctx, record); err != nil {
				return nil, &StageError{Stage: StageLookup, Err: err}
			}
		}
	}

	result := &Result{
		RequestID:     requestID,
		Record:        record,
		Pages:         transcript.Pages,
		FounderLookup: lookup,
		Duration:      time.Since(start),
	}

	logger.Info().
		Str("source", req.Source.Label()).
		Int("pages", len(transcript.Pages)).
		Str("founder_lookup", lookup).
		Dur("duration", result.Duration).
		Msg("Analysis request complete")

	return result, nil
}

func emit(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh == nil {
		return
	}
	select {
	case eventCh <- event:
	default:
	}
}
