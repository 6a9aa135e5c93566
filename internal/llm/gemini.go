package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/retry"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements Completer with the Gemini API
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	retry   retry.Config
	logger  *observability.Logger
}

// NewGeminiClient creates a Gemini-backed completer
func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, domain.ConfigError("Gemini API key is required", nil)
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions.BaseURL = opts.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, domain.ConfigError("Failed to create Gemini client", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: opts.Timeout,
		retry:   retry.DefaultConfig().WithMaxRetries(opts.MaxRetries),
		logger:  logger.WithStr("provider", "gemini"),
	}, nil
}

// Complete sends a single prompt and returns the model's text
func (g *GeminiClient) Complete(ctx context.Context, p Prompt) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(p.Text)}
	if len(p.Image) > 0 {
		mime := p.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, genai.NewPartFromBytes(p.Image, mime))
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0)),
	}
	if p.System != "" {
		config.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if p.JSON {
		config.ResponseMIMEType = "application/json"
	}

	var text string
	err := retry.Call(ctx, g.retry, g.logger, geminiTransient, func() error {
		var err error
		text, err = g.generate(ctx, contents, config)
		return err
	})

	var exhausted *retry.ExhaustedError
	switch {
	case err == nil:
		return text, nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.As(err, &exhausted):
		return "", domain.APIError("Failed to send request", err)
	default:
		return "", domain.APIError("Request rejected", err)
	}
}

func (g *GeminiClient) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(callCtx, g.model, contents, config)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}
	return resp.Text(), nil
}

// geminiTransient treats rate limits, server errors and timeouts as retryable
func geminiTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.ShouldRetry(apiErr.Code)
	}
	return retry.IsTransient(err)
}
