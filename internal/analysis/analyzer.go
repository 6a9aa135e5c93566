// Package analysis turns a deck transcript into a structured startup record.
package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/llm"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
)

// Analyzer asks a language model for the structured record of a deck
type Analyzer struct {
	model  llm.Completer
	logger *observability.Logger
}

// NewAnalyzer creates a structured analyzer
func NewAnalyzer(model llm.Completer, logger *observability.Logger) *Analyzer {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Analyzer{
		model:  model,
		logger: logger.WithOperation("analysis"),
	}
}

// Analyze sends the transcript with the record schema and parses the reply.
// Malformed replies are not retried: the same input tends to reproduce them.
func (a *Analyzer) Analyze(ctx context.Context, transcript, instruction string) (*domain.StructuredRecord, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, domain.AnalysisError("Transcript is empty", nil)
	}

	logger := a.logger.WithContext(ctx)
	start := time.Now()

	reply, err := a.model.Complete(ctx, llm.Prompt{
		System: systemPrompt,
		Text:   buildPrompt(transcript, instruction),
		JSON:   true,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domain.AnalysisError("Language service call failed", err)
	}

	record, missing, err := ParseRecord(reply)
	if err != nil {
		logger.Error().
			Err(err).
			Int("reply_chars", len(reply)).
			Msg("Could not parse analysis reply")
		return nil, err
	}

	if len(missing) > 0 {
		logger.Warn().
			Strs("missing", missing).
			Msg("Analysis reply omitted fields, filled with defaults")
	}
	logger.Info().
		Str("startup", record.StartupName).
		Int("founders", len(record.Founders)).
		Dur("duration", time.Since(start)).
		Msg("Deck analyzed")

	return record, nil
}
