// Package normalize turns free-form Spanish or English posting text into typed
// record fields. Every function is pure and total: "absent" is a valid result.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// prepare lower-cases and trims s.
func prepare(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// fold strips diacritics so "pasantía" and "pasantia" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// keyword is one entry of a lookup table. Short keywords only match whole
// words so "hr" does not fire on "three".
type keyword struct {
	text   string
	folded string
	word   *regexp.Regexp
}

func newKeyword(k string) keyword {
	k = strings.ToLower(k)
	kw := keyword{text: k, folded: fold(k)}
	if len([]rune(kw.folded)) <= 3 {
		kw.word = regexp.MustCompile(`(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(kw.folded) + `($|[^\p{L}\p{N}])`)
	}
	return kw
}

func newKeywords(ks ...string) []keyword {
	out := make([]keyword, len(ks))
	for i, k := range ks {
		out[i] = newKeyword(k)
	}
	return out
}

// text is a prepared input kept in both raw and accent-folded form.
type text struct {
	lower  string
	folded string
}

func newText(s string) text {
	l := prepare(s)
	return text{lower: l, folded: fold(l)}
}

func (t text) empty() bool { return t.lower == "" }

func (t text) has(k keyword) bool {
	if k.word != nil {
		return k.word.MatchString(t.folded)
	}
	return strings.Contains(t.lower, k.text) || strings.Contains(t.folded, k.folded)
}

func (t text) hasAny(ks []keyword) bool {
	for _, k := range ks {
		if t.has(k) {
			return true
		}
	}
	return false
}
