// Package textnorm holds the text normalization shared by extraction,
// cleanup and validation.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Collapse trims s and replaces every whitespace run with one space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clean composes s to NFC and collapses whitespace. s is extracted text:
// markup and entities were already resolved by the HTML parser, so a literal
// "<" or "&amp;" is content and is kept.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return Collapse(norm.NFC.String(s))
}

// StripAccents removes combining marks after canonical decomposition,
// e.g. "Concepción" becomes "Concepcion".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold is the matching form of s: lower-cased, accent-free, collapsed.
func Fold(s string) string {
	return Collapse(strings.ToLower(StripAccents(s)))
}
