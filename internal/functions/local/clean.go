package local

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanText prepares OCR or body text for extraction.
// NFKC folds ligatures and full-width forms; control characters and every
// whitespace run become a single space.
func CleanText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Excerpt returns at most n runes of text, trimmed
func Excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimSpace(string(r))
}
