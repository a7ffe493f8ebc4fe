package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonicalize lowercases s, trims it and collapses every whitespace run to a single
// space. Canonicalize(Canonicalize(s)) == Canonicalize(s).
func Canonicalize(s string) string {
	// Casers are stateful, so one per call.
	lower := cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(lower), " ")
}
