package pdf

import (
	"fmt"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
)

// DefaultDPI keeps small slide fonts legible for the vision service
const DefaultDPI = 300

// Rasterizer renders deck pages to PNG for OCR
type Rasterizer struct {
	dpi float64
}

// NewRasterizer creates a rasterizer for the given resolution
func NewRasterizer(dpi float64) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{dpi: dpi}
}

// DPI returns the configured resolution
func (r *Rasterizer) DPI() float64 {
	return r.dpi
}

// Render rasterizes one page. Output is deterministic for a page and DPI.
func (r *Rasterizer) Render(doc domain.Document, index int) ([]byte, error) {
	img, err := doc.RenderPNG(index, r.dpi)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("Failed to rasterize page %d", index+1), err)
	}
	if len(img) == 0 {
		return nil, domain.RenderError(fmt.Sprintf("Rasterizer returned an empty image for page %d", index+1), nil)
	}
	return img, nil
}
