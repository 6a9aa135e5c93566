// Package extract turns a deck PDF into an ordered page-by-page transcript.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/pdf"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of pages processed at once
const DefaultConcurrency = 4

// Options tunes an Assembler
type Options struct {
	Concurrency  int
	Instructions string // OCR instructions; empty uses the recognizer default
}

// Assembler orchestrates direct extraction, rasterization and OCR per page
type Assembler struct {
	opener       domain.DocumentOpener
	extractor    *pdf.TextExtractor
	rasterizer   *pdf.Rasterizer
	recognizer   domain.TextRecognizer
	concurrency  int
	instructions string
	logger       *observability.Logger
}

// NewAssembler creates a new deck text assembler
func NewAssembler(
	opener domain.DocumentOpener,
	extractor *pdf.TextExtractor,
	rasterizer *pdf.Rasterizer,
	recognizer domain.TextRecognizer,
	opts Options,
	logger *observability.Logger,
) *Assembler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Assembler{
		opener:       opener,
		extractor:    extractor,
		rasterizer:   rasterizer,
		recognizer:   recognizer,
		concurrency:  opts.Concurrency,
		instructions: opts.Instructions,
		logger:       logger.WithOperation("extract"),
	}
}

// PageMarker is the boundary line written before each page's text
func PageMarker(pageNumber int) string {
	return fmt.Sprintf("# Page %d", pageNumber)
}

// Assemble processes every page of the deck and returns the transcript.
// Page failures degrade to ocr_failed placeholders; the manifest always has
// one entry per source page. Cancellation fails the whole deck.
func (a *Assembler) Assemble(ctx context.Context, src domain.Source, forceOCR bool, eventCh chan<- domain.StreamEvent) (*domain.DeckTranscript, error) {
	startTime := time.Now()
	logger := a.logger.WithContext(ctx)

	doc, err := a.opener.Open(ctx, src)
	if err != nil {
		a.emitError(eventCh, 0, err)
		return nil, err
	}
	defer doc.Close()

	total := doc.NumPages()
	a.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventStart,
		TotalPages: total,
		Payload:    fmt.Sprintf("Starting extraction of %s", src.Label()),
		Timestamp:  time.Now(),
	})
	logger.Info().
		Str("source", src.Label()).
		Int("pages", total).
		Bool("force_ocr", forceOCR).
		Msg("Assembling deck transcript")

	pages := make([]domain.Page, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := 0; i < total; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := a.processPage(gctx, doc, i, total, forceOCR, eventCh)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.emitError(eventCh, 0, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transcript := &domain.DeckTranscript{
		Pages: pages,
		Text:  joinPages(pages),
	}

	direct := transcript.Count(domain.MethodDirect)
	ocr := transcript.Count(domain.MethodOCR)
	failed := transcript.Count(domain.MethodOCRFailed)

	a.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventExtractionComplete,
		TotalPages: total,
		Payload: fmt.Sprintf("Extraction complete: %d direct, %d ocr, %d failed in %v",
			direct, ocr, failed, time.Since(startTime).Round(time.Millisecond)),
		Timestamp: time.Now(),
	})
	logger.Info().
		Int("direct", direct).
		Int("ocr", ocr).
		Int("ocr_failed", failed).
		Dur("duration", time.Since(startTime)).
		Msg("Deck transcript assembled")

	return transcript, nil
}

// processPage runs the per-page decision. The returned error is non-nil only
// when the request was cancelled.
func (a *Assembler) processPage(ctx context.Context, doc domain.Document, index, total int, forceOCR bool, eventCh chan<- domain.StreamEvent) (domain.Page, error) {
	pageNumber := index + 1
	a.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventPageProcessing,
		PageNumber: pageNumber,
		TotalPages: total,
		Payload:    fmt.Sprintf("Processing page %d", pageNumber),
		Timestamp:  time.Now(),
	})

	verdict := a.extractor.Extract(doc, index, forceOCR)
	page := domain.Page{Index: index, Reason: verdict.Reason}

	if verdict.Trustworthy {
		page.Method = domain.MethodDirect
		page.Trustworthy = true
		page.Text = verdict.Text
	} else {
		text, err := a.recognizePage(ctx, doc, index)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return domain.Page{}, err
			}
			a.logger.Warn().
				Int("page", pageNumber).
				Str("reason", verdict.Reason).
				Err(err).
				Msg("Page OCR failed, using empty placeholder")
			a.emitError(eventCh, pageNumber, fmt.Errorf("page %d: %w", pageNumber, err))

			page.Method = domain.MethodOCRFailed
			page.Error = err.Error()
		} else {
			page.Method = domain.MethodOCR
			page.Text = text
		}
	}
	page.Chars = utf8.RuneCountInString(page.Text)

	a.logger.Debug().
		Int("page", pageNumber).
		Str("method", string(page.Method)).
		Str("reason", page.Reason).
		Int("chars", page.Chars).
		Msg("Page processed")

	a.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventPageComplete,
		PageNumber: pageNumber,
		TotalPages: total,
		Payload:    page,
		Timestamp:  time.Now(),
	})
	return page, nil
}

func (a *Assembler) recognizePage(ctx context.Context, doc domain.Document, index int) (string, error) {
	img, err := a.rasterizer.Render(doc, index)
	if err != nil {
		return "", err
	}
	return a.recognizer.Recognize(ctx, img, a.instructions)
}

// joinPages concatenates page texts in index order with a boundary marker
func joinPages(pages []domain.Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(PageMarker(p.Index + 1))
		b.WriteString("\n\n")
		b.WriteString(p.Text)
	}
	return b.String()
}

// emitEvent safely emits an event to the channel
func (a *Assembler) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh != nil {
		select {
		case eventCh <- event:
		default:
			a.logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}
}

// emitError emits an error event
func (a *Assembler) emitError(eventCh chan<- domain.StreamEvent, pageNumber int, err error) {
	a.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventError,
		PageNumber: pageNumber,
		Payload:    err.Error(),
		Timestamp:  time.Now(),
	})
}
