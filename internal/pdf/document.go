// Package pdf gives page-level access to PDF decks: direct text extraction,
// the trustworthiness verdict on that text, and rasterization for OCR.
package pdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
)

// Document implements domain.Document on top of go-fitz (MuPDF).
// MuPDF contexts are not safe for concurrent use, so every call is serialized.
type Document struct {
	mu  sync.Mutex
	doc *fitz.Document
	n   int
}

// NumPages returns the page count
func (d *Document) NumPages() int {
	return d.n
}

// PageText returns the embedded text of a page
func (d *Document) PageText(index int) (string, error) {
	if err := d.checkIndex(index); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Text(index)
}

// RenderPNG rasterizes a page to PNG at the given DPI
func (d *Document) RenderPNG(index int, dpi float64) ([]byte, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.ImagePNG(index, dpi)
}

// Close releases the MuPDF document
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

func (d *Document) checkIndex(index int) error {
	if index < 0 || index >= d.n {
		return fmt.Errorf("page index %d out of range [0,%d)", index, d.n)
	}
	return nil
}

// Opener opens PDF sources with go-fitz after validating them
type Opener struct {
	validator *Validator
	logger    *observability.Logger
}

// NewOpener creates a new document opener
func NewOpener(logger *observability.Logger) *Opener {
	return &Opener{
		validator: NewValidator(logger),
		logger:    logger,
	}
}

// Open validates and opens a PDF source
func (o *Opener) Open(ctx context.Context, src domain.Source) (domain.Document, error) {
	if err := o.validator.ValidateSource(src); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	structurePages, structErr := o.validator.StructurePageCount(src)
	if structErr != nil {
		o.logger.Warn().Err(structErr).Str("source", src.Label()).Msg("PDF failed structural validation, trying renderer anyway")
	}

	var (
		doc *fitz.Document
		err error
	)
	if src.Path != "" {
		doc, err = fitz.New(src.Path)
	} else {
		doc, err = fitz.NewFromMemory(src.Data)
	}
	if err != nil {
		return nil, domain.IOError("Failed to open PDF", err)
	}

	n := doc.NumPage()
	if n == 0 {
		doc.Close()
		return nil, domain.ValidationError("PDF has no pages", nil)
	}
	if structErr == nil && structurePages != n {
		o.logger.Warn().
			Int("renderer_pages", n).
			Int("structure_pages", structurePages).
			Str("source", src.Label()).
			Msg("Page count mismatch between renderer and structure check")
	}

	return &Document{doc: doc, n: n}, nil
}
