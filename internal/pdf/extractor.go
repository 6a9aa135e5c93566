package pdf

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
)

// Trust verdict reasons
const (
	ReasonForced   = "forced"
	ReasonEmpty    = "empty"
	ReasonTooShort = "too_short"
	ReasonGarbled  = "garbled"
	ReasonError    = "extract_error"
	ReasonOK       = "ok"
)

// cidPattern matches the glyph placeholders emitted for fonts without a
// usable ToUnicode map.
var cidPattern = regexp.MustCompile(`\(cid:\d+\)`)

// TrustPolicy decides whether directly extracted text can be used as-is
type TrustPolicy struct {
	MinChars        int     // minimum non-space runes
	MaxGarbledRatio float64 // maximum share of mis-decoded runes
}

// DefaultTrustPolicy returns the default thresholds
func DefaultTrustPolicy() TrustPolicy {
	return TrustPolicy{MinChars: 16, MaxGarbledRatio: 0.10}
}

// Verdict is the outcome of a direct extraction attempt
type Verdict struct {
	Text        string
	Trustworthy bool
	Reason      string
}

// Evaluate applies the policy to a page's extracted text
func (p TrustPolicy) Evaluate(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Verdict{Text: trimmed, Reason: ReasonEmpty}
	}

	if cidPattern.MatchString(trimmed) {
		return Verdict{Text: trimmed, Reason: ReasonGarbled}
	}

	visible, bad := 0, 0
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		visible++
		if isMisdecoded(r) {
			bad++
		}
	}

	if visible < p.MinChars {
		return Verdict{Text: trimmed, Reason: ReasonTooShort}
	}
	if float64(bad)/float64(visible) > p.MaxGarbledRatio {
		return Verdict{Text: trimmed, Reason: ReasonGarbled}
	}

	return Verdict{Text: trimmed, Trustworthy: true, Reason: ReasonOK}
}

// isMisdecoded flags runes that only show up when a font's encoding could not
// be mapped back to Unicode.
func isMisdecoded(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return true
	case unicode.IsControl(r):
		return true
	case unicode.Is(unicode.Co, r): // private use area
		return true
	case r >= 0xFFF0 && r <= 0xFFFF: // specials block
		return true
	}
	return false
}

// TextExtractor attempts direct text extraction for a single page
type TextExtractor struct {
	policy TrustPolicy
}

// NewTextExtractor creates a page text extractor with the given policy
func NewTextExtractor(policy TrustPolicy) *TextExtractor {
	return &TextExtractor{policy: policy}
}

// Extract returns the page's embedded text and whether it can be trusted.
// With forceOCR set the page is never read and the verdict is untrusted.
func (e *TextExtractor) Extract(doc domain.Document, index int, forceOCR bool) Verdict {
	if forceOCR {
		return Verdict{Reason: ReasonForced}
	}

	text, err := doc.PageText(index)
	if err != nil {
		return Verdict{Reason: ReasonError}
	}

	return e.policy.Evaluate(text)
}
