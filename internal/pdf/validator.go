package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
)

const maxSize = 100 * 1024 * 1024 // 100MB

// Validator provides input validation for PDF files
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger *observability.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidateSource checks that a source names a readable PDF or holds PDF bytes
func (v *Validator) ValidateSource(src domain.Source) error {
	if src.Path == "" && len(src.Data) == 0 {
		return domain.ValidationError("source has neither a path nor data", nil)
	}
	if src.Path != "" {
		return v.ValidatePDFPath(src.Path)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(src.Data[:min(len(src.Data), 1024)], "\x00\t\r\n "), []byte("%PDF-")) {
		return domain.ValidationError("data is not a PDF (missing %PDF- header)", nil)
	}
	return nil
}

// ValidatePDFPath validates that a file path is valid and points to a PDF
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	// Large decks are allowed, just slow.
	if info.Size() > maxSize {
		v.logger.Warn().Int64("size_mb", info.Size()/(1024*1024)).Msg("PDF file is very large, processing may take a while")
	}

	return nil
}

// ValidateDPI validates the rasterization resolution
func (v *Validator) ValidateDPI(dpi float64) error {
	if dpi < 72 || dpi > 600 {
		return domain.ValidationError(fmt.Sprintf("dpi must be between 72 and 600, got %.0f", dpi), nil)
	}
	return nil
}

// StructurePageCount runs a relaxed pdfcpu validation and returns the page
// count pdfcpu sees. Callers treat a failure as a warning.
func (v *Validator) StructurePageCount(src domain.Source) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if src.Path != "" {
		if err := api.ValidateFile(src.Path, conf); err != nil {
			return 0, err
		}
		return api.PageCountFile(src.Path)
	}

	if err := api.Validate(bytes.NewReader(src.Data), conf); err != nil {
		return 0, err
	}
	return api.PageCount(bytes.NewReader(src.Data), conf)
}
