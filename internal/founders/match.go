package founders

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMatchThreshold is the share of name tokens a search result must contain
const DefaultMatchThreshold = 0.6

// fold lower-cases s and strips diacritics so "Léonard" matches "leonard"
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// nameTokens splits a folded string into words of at least two runes
func nameTokens(s string) []string {
	fields := strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// MatchScore returns the fraction of the name's tokens found as whole words
// in any of the texts. Hyphenated handles count as separate words.
func MatchScore(name string, texts ...string) float64 {
	want := nameTokens(name)
	if len(want) == 0 {
		return 0
	}

	have := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range nameTokens(text) {
			have[tok] = struct{}{}
		}
	}

	matched := 0
	for _, tok := range want {
		if _, ok := have[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}

// validName reports whether name has at least one usable token
func validName(name string) bool {
	return len(nameTokens(name)) > 0
}
