package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanText = "Problem: founders waste weeks formatting pitch decks by hand."

type fakeDocument struct {
	texts      []string
	renderErr  map[int]error
	textCalls  atomic.Int32
	mu         sync.Mutex
	renderHits map[int]int
}

func newFakeDocument(texts ...string) *fakeDocument {
	return &fakeDocument{texts: texts, renderHits: map[int]int{}}
}

func (d *fakeDocument) NumPages() int { return len(d.texts) }

func (d *fakeDocument) PageText(i int) (string, error) {
	d.textCalls.Add(1)
	return d.texts[i], nil
}

func (d *fakeDocument) RenderPNG(i int, dpi float64) ([]byte, error) {
	d.mu.Lock()
	d.renderHits[i]++
	d.mu.Unlock()
	if err := d.renderErr[i]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("png-%d", i)), nil
}

func (d *fakeDocument) Close() error { return nil }

type fakeOpener struct {
	doc domain.Document
	err error
}

func (o *fakeOpener) Open(ctx context.Context, src domain.Source) (domain.Document, error) {
	return o.doc, o.err
}

// fakeRecognizer answers "ocr text N" for image "png-N"; pages listed in
// fail return an OCR error. Earlier pages respond more slowly so completion
// order differs from page order.
type fakeRecognizer struct {
	calls atomic.Int32
	fail  map[string]bool
	delay bool
	total int
}

func (r *fakeRecognizer) Recognize(ctx context.Context, image []byte, instructions string) (string, error) {
	r.calls.Add(1)
	id := strings.TrimPrefix(string(image), "png-")
	if r.delay {
		var n int
		fmt.Sscanf(id, "%d", &n)
		time.Sleep(time.Duration(r.total-n) * time.Millisecond)
	}
	if r.fail[id] {
		return "", domain.OCRError("Vision request rejected", errors.New("400 bad image"))
	}
	return "ocr text " + id, nil
}

func newAssembler(doc domain.Document, rec domain.TextRecognizer, concurrency int) *Assembler {
	return NewAssembler(
		&fakeOpener{doc: doc},
		pdf.NewTextExtractor(pdf.DefaultTrustPolicy()),
		pdf.NewRasterizer(0),
		rec,
		Options{Concurrency: concurrency},
		nil,
	)
}

func TestAssemble_CleanPagesNeverOCR(t *testing.T) {
	doc := newFakeDocument(cleanText, cleanText)
	rec := &fakeRecognizer{}

	transcript, err := newAssembler(doc, rec, 2).Assemble(context.Background(), domain.Source{Path: "deck.pdf"}, false, nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.ExtractionMethod{domain.MethodDirect, domain.MethodDirect}, transcript.Methods())
	assert.Zero(t, rec.calls.Load())
	assert.Empty(t, doc.renderHits)
	assert.Equal(t, "# Page 1\n\n"+cleanText+"\n\n# Page 2\n\n"+cleanText, transcript.Text)
}

func TestAssemble_AllGarbledPages(t *testing.T) {
	texts := make([]string, 14)
	for i := range texts {
		texts[i] = strings.Repeat("(cid:72)(cid:101)", 10)
	}
	doc := newFakeDocument(texts...)
	rec := &fakeRecognizer{}

	transcript, err := newAssembler(doc, rec, 4).Assemble(context.Background(), domain.Source{Path: "deck.pdf"}, false, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 14, rec.calls.Load())
	assert.Equal(t, 0, transcript.Count(domain.MethodDirect))
	assert.Equal(t, 14, transcript.Count(domain.MethodOCR))
	assert.NotEmpty(t, transcript.Text)
	for i := 0; i < 14; i++ {
		assert.Equal(t, 1, doc.renderHits[i], "page %d rendered once", i+1)
	}
}

func TestAssemble_ForceOCR(t *testing.T) {
	doc := newFakeDocument(cleanText, cleanText, cleanText)
	rec := &fakeRecognizer{}

	transcript, err := newAssembler(doc, rec, 2).Assemble(context.Background(), domain.Source{Path: "deck.pdf"}, true, nil)
	require.NoError(t, err)

	assert.Zero(t, doc.textCalls.Load())
	assert.EqualValues(t, 3, rec.calls.Load())
	for _, p := range transcript.Pages {
		assert.Equal(t, domain.MethodOCR, p.Method)
		assert.Equal(t, pdf.ReasonForced, p.Reason)
	}
}

func TestAssemble_PreservesPageOrder(t *testing.T) {
	texts := make([]string, 10)
	doc := newFakeDocument(texts...)
	rec := &fakeRecognizer{delay: true, total: len(texts)}

	transcript, err := newAssembler(doc, rec, 10).Assemble(context.Background(), domain.Source{Path: "deck.pdf"}, false, nil)
	require.NoError(t, err)

	require.Len(t, transcript.Pages, 10)
	last := -1
	for i, p := range transcript.Pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, fmt.Sprintf("ocr text %d", i), p.Text)

		pos := strings.Index(transcript.Text, fmt.Sprintf("# Page %d\n", i+1))
		assert.Greater(t, pos, last)
		last = pos
	}
}

func TestAssemble_PageFailureIsIsolated(t *testing.T) {
	doc := newFakeDocument("", cleanText, "", "")
	doc.renderErr = map[int]error{3: errors.New("corrupt page object")}
	rec := &fakeRecognizer{fail: map[string]bool{"0": true}}
	events := make(chan domain.StreamEvent, 64)

	transcript, err := newAssembler(doc, rec, 2).Assemble(context.Background(), domain.Source{Path: "deck.pdf"}, false, events)
	require.NoError(t, err)

	require.Len(t, transcript.Pages, 4)
	assert.Equal(t, []domain.ExtractionMethod{
		domain.MethodOCRFailed, domain.MethodDirect, domain.MethodOCR, domain.MethodOCRFailed,
	}, transcript.Methods())

	assert.Empty(t, transcript.Pages[0].Text)
	assert.Contains(t, transcript.Pages[0].Error, "[ocr]")
	assert.Contains(t, transcript.Pages[3].Error, "[render]")
	assert.Contains(t, transcript.Text, cleanText)
	assert.Contains(t, transcript.Text, "ocr text 2")
	assert.Contains(t, transcript.Text, "# Page 4")

	close(events)
	counts := map[domain.EventType]int{}
	for ev := range events {
		counts[ev.Type]++
	}
	assert.Equal(t, 1, counts[domain.EventStart])
	assert.Equal(t, 4, counts[domain.EventPageProcessing])
	assert.Equal(t, 4, counts[domain.EventPageComplete], "failed pages still complete")
	assert.Equal(t, 2, counts[domain.EventError])
	assert.Equal(t, 1, counts[domain.EventExtractionComplete])
	assert.Zero(t, counts[domain.EventComplete])
}

func TestAssemble_OpenFailure(t *testing.T) {
	a := NewAssembler(&fakeOpener{err: domain.ValidationError("not a PDF", nil)},
		pdf.NewTextExtractor(pdf.DefaultTrustPolicy()), pdf.NewRasterizer(0), &fakeRecognizer{}, Options{}, nil)

	_, err := a.Assemble(context.Background(), domain.Source{Data: []byte("nope")}, false, nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

type cancellingRecognizer struct {
	cancel context.CancelFunc
}

func (r *cancellingRecognizer) Recognize(ctx context.Context, image []byte, instructions string) (string, error) {
	r.cancel()
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAssemble_CancellationFailsDeck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc := newFakeDocument("", "", "")
	transcript, err := newAssembler(doc, &cancellingRecognizer{cancel: cancel}, 1).Assemble(ctx, domain.Source{Path: "deck.pdf"}, false, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, transcript)
}

func TestPageMarker(t *testing.T) {
	assert.Equal(t, "# Page 12", PageMarker(12))
}
