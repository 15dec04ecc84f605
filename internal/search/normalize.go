package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalizeTitle folds case, composes Unicode to NFC and collapses whitespace
// runs so that visually identical titles compare equal.
func normalizeTitle(raw string) string {
	composed := norm.NFC.String(raw)
	folded := cases.Fold().String(composed)
	return strings.Join(strings.Fields(folded), " ")
}

// disambiguationKey groups candidates that describe the same show.
func disambiguationKey(title, year string) string {
	return normalizeTitle(title) + "|" + strings.TrimSpace(year)
}
