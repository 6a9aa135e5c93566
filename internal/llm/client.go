// Package llm talks to the vision and language-understanding services.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/retry"
)

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel  = "google/gemini-2.5-flash"
)

// Prompt is a single-turn request to a model, optionally carrying an image
type Prompt struct {
	System    string
	Text      string
	Image     []byte
	ImageMIME string
	JSON      bool // ask for a JSON object response
}

// Completer is implemented by every model provider
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// StatusError is returned for non-retryable HTTP statuses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Logger     *observability.Logger
}

// Client handles communication with the OpenRouter chat completions API
type Client struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
	retry      retry.Config
	logger     *observability.Logger
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// ResponseFormat requests a structured response
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request represents the API request structure
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response represents the API response structure
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      Delta  `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Delta represents a message body
type Delta struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// NewClient creates a new LLM client
func NewClient(opts Options) *Client {
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	url := opts.BaseURL
	if url == "" {
		url = openRouterURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	return &Client{
		apiKey:     opts.APIKey,
		model:      model,
		url:        url,
		httpClient: &http.Client{Timeout: opts.Timeout},
		retry:      retry.DefaultConfig().WithMaxRetries(opts.MaxRetries),
		logger:     logger.WithStr("provider", "openrouter"),
	}
}

// Model returns the configured model id
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single prompt and returns the model's text
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	req := c.buildRequest(p)

	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.APIError("Failed to marshal request", err)
	}

	resp, err := retry.Do(ctx, c.retry, c.logger, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("HTTP-Referer", "https://github.com/spherical/pitchdeck-analyzer")
		httpReq.Header.Set("X-Title", "Pitch Deck Analyzer")

		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return "", domain.APIError("Failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.APIError("Request rejected", &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)})
	}

	var apiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", domain.APIError("Failed to parse API response", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", domain.APIError("No choices in API response", nil)
	}

	return apiResp.Choices[0].Message.Content, nil
}

// buildRequest constructs the API request
func (c *Client) buildRequest(p Prompt) *Request {
	var messages []Message
	if p.System != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: []ContentPart{{Type: "text", Text: p.System}},
		})
	}

	parts := []ContentPart{{Type: "text", Text: p.Text}}
	if len(p.Image) > 0 {
		mime := p.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, ContentPart{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(p.Image),
			},
		})
	}
	messages = append(messages, Message{Role: "user", Content: parts})

	temp := 0.0
	req := &Request{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temp,
	}
	if p.JSON {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	return req
}
