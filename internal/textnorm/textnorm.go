// Package textnorm folds accented text into a plain lowercase form so
// free-text labels can be matched against canonical categories.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold trims, lower-cases and strips combining marks from s.
// "EM EXECUÇÃO" and "em execucao" fold to the same string.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Fall back to the lowered input; matching then simply misses.
		return s
	}
	return out
}
