package pdf

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDeck writes a two page PDF: a text slide followed by a blank slide.
func buildDeck(t *testing.T) []byte {
	t.Helper()

	doc := fpdf.New("L", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 16)

	doc.AddPage()
	doc.Cell(0, 12, "Problem: travellers cannot book rooms with locals")
	doc.Ln(14)
	doc.Cell(0, 12, "Solution: a web platform connecting hosts and guests")

	doc.AddPage()

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestOpener_DirectTextAndRender(t *testing.T) {
	data := buildDeck(t)
	opener := NewOpener(observability.Nop())

	doc, err := opener.Open(context.Background(), domain.Source{Data: data, Name: "deck.pdf"})
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 2, doc.NumPages())

	ex := NewTextExtractor(DefaultTrustPolicy())
	first := ex.Extract(doc, 0, false)
	assert.True(t, first.Trustworthy, "reason=%s text=%q", first.Reason, first.Text)
	assert.Contains(t, first.Text, "travellers")

	second := ex.Extract(doc, 1, false)
	assert.False(t, second.Trustworthy)
	assert.Equal(t, ReasonEmpty, second.Reason)

	r := NewRasterizer(96)
	img1, err := r.Render(doc, 1)
	require.NoError(t, err)
	img2, err := r.Render(doc, 1)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img1, []byte("\x89PNG")))
	assert.Equal(t, img1, img2, "same page and dpi must render identically")

	_, err = doc.PageText(5)
	assert.Error(t, err)
}

func TestOpener_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pdf")
	require.NoError(t, os.WriteFile(path, buildDeck(t), 0o644))

	doc, err := NewOpener(observability.Nop()).Open(context.Background(), domain.Source{Path: path})
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 2, doc.NumPages())
}

func TestValidator(t *testing.T) {
	v := NewValidator(observability.Nop())
	dir := t.TempDir()

	notPDF := filepath.Join(dir, "deck.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("hello"), 0o644))

	tests := []struct {
		name string
		src  domain.Source
	}{
		{"empty source", domain.Source{}},
		{"missing file", domain.Source{Path: filepath.Join(dir, "missing.pdf")}},
		{"directory", domain.Source{Path: dir}},
		{"wrong extension", domain.Source{Path: notPDF}},
		{"bytes without header", domain.Source{Data: []byte("GIF89a")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSource(tt.src)
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
		})
	}

	n, err := v.StructurePageCount(domain.Source{Data: buildDeck(t)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.NoError(t, v.ValidateDPI(300))
	assert.Error(t, v.ValidateDPI(20))
}
