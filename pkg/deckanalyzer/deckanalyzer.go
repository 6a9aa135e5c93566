// Package deckanalyzer is the library entry point for pitch deck analysis.
package deckanalyzer

import (
	"context"
	"os"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/config"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/pipeline"
)

// Re-exported types for the public API
type (
	Config              = config.Config
	Result              = pipeline.Result
	StructuredRecord    = domain.StructuredRecord
	FounderLookupResult = domain.FounderLookupResult
	Page                = domain.Page
	StreamEvent         = domain.StreamEvent
	EventType           = domain.EventType
)

// Event type constants
const (
	EventStart              = domain.EventStart
	EventPageProcessing     = domain.EventPageProcessing
	EventPageComplete       = domain.EventPageComplete
	EventExtractionComplete = domain.EventExtractionComplete
	EventAnalysis           = domain.EventAnalysis
	EventFounderLookup      = domain.EventFounderLookup
	EventError              = domain.EventError
	EventComplete           = domain.EventComplete
)

// Options tunes a single analysis
type Options struct {
	ForceOCR       bool
	LookupFounders bool
	Instruction    string
}

// Client is the main entry point for the library
type Client struct {
	components *pipeline.Components
}

// DefaultConfig returns the default configuration for NewClientWithConfig.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// NewClient creates a client from environment variables and an optional .env file.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, domain.ConfigError("Invalid configuration", err)
	}
	return NewClientWithConfig(ctx, cfg)
}

// NewClientWithConfig creates a client with custom configuration
func NewClientWithConfig(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("Config is required", nil)
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	components, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Client{components: components}, nil
}

// Analyze runs the full pipeline on a PDF file and waits for the result.
func (c *Client) Analyze(ctx context.Context, pdfPath string, opts Options) (*Result, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, domain.ValidationError("PDF file not found", err)
	}
	return c.components.Service.Analyze(ctx, request(domain.Source{Path: pdfPath}, opts), nil)
}

// AnalyzeBytes runs the full pipeline on an in-memory PDF.
func (c *Client) AnalyzeBytes(ctx context.Context, name string, data []byte, opts Options) (*Result, error) {
	return c.components.Service.Analyze(ctx, request(domain.Source{Data: data, Name: name}, opts), nil)
}

// Process analyzes a PDF file in the background. The returned channel streams
// progress events and is closed after the last one, which is either an error
// event or the only complete event, whose payload is the *Result. If ctx is
// cancelled while the caller has stopped reading, the final event is dropped.
func (c *Client) Process(ctx context.Context, pdfPath string, opts Options) (<-chan StreamEvent, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, domain.ValidationError("PDF file not found", err)
	}

	eventCh := make(chan StreamEvent, 100)
	go func() {
		defer close(eventCh)
		result, err := c.components.Service.Analyze(ctx, request(domain.Source{Path: pdfPath}, opts), eventCh)
		final := StreamEvent{Type: EventComplete, Payload: result, Timestamp: time.Now()}
		if err != nil {
			final = StreamEvent{Type: EventError, Payload: err.Error(), Timestamp: time.Now()}
		}
		select {
		case eventCh <- final:
		case <-ctx.Done():
		}
	}()

	return eventCh, nil
}

// LookupFounders resolves founder names to profiles without a deck.
func (c *Client) LookupFounders(ctx context.Context, names []string) ([]FounderLookupResult, error) {
	return c.components.Coordinator.Lookup(ctx, names)
}

// LookupAvailable reports whether search credentials are configured.
func (c *Client) LookupAvailable() bool {
	return c.components.Service.LookupAvailable()
}

// Close cleans up resources
func (c *Client) Close() error {
	return c.components.Close()
}

func request(src domain.Source, opts Options) pipeline.Request {
	return pipeline.Request{
		Source:         src,
		ForceOCR:       opts.ForceOCR,
		LookupFounders: opts.LookupFounders,
		Instruction:    opts.Instruction,
	}
}
