// Package ocr reads slide text out of rasterized pages with a vision model.
package ocr

import (
	"context"
	"errors"
	"strings"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/llm"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/retry"
)

// DefaultInstructions asks for a plain transcription of the slide
const DefaultInstructions = `Transcribe all text visible on this pitch deck slide.
Preserve the reading order (top to bottom, left to right, column by column).
Include text found in charts, tables, captions and logos when legible.
Return plain text only. Do not describe images, add commentary or wrap the output in code fences.
If the slide has no readable text, return an empty response.`

const systemPrompt = "You are a precise OCR engine for presentation slides."

// Client implements domain.TextRecognizer over a vision-capable model
type Client struct {
	model  llm.Completer
	logger *observability.Logger
}

// NewClient creates a vision OCR client
func NewClient(model llm.Completer, logger *observability.Logger) *Client {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Client{
		model:  model,
		logger: logger.WithOperation("ocr"),
	}
}

// Recognize returns the text found in a PNG image. Transient provider failures
// are retried by the underlying model client; every failure that reaches the
// caller is an OCRError.
func (c *Client) Recognize(ctx context.Context, image []byte, instructions string) (string, error) {
	if len(image) == 0 {
		return "", domain.OCRError("Image is empty", nil)
	}
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}

	text, err := c.model.Complete(ctx, llm.Prompt{
		System:    systemPrompt,
		Text:      instructions,
		Image:     image,
		ImageMIME: "image/png",
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		msg := "Vision request rejected"
		if retry.IsTransient(err) {
			msg = "Vision service unavailable"
		}
		return "", domain.OCRError(msg, err)
	}

	return cleanTranscript(text), nil
}

// cleanTranscript strips the code fences some models add despite instructions
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
