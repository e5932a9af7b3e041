package normalize

import (
	"regexp"
	"strings"
)

var (
	multiSpace    = regexp.MustCompile(`\s+`)
	nonHeaderChar = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeKey trims and collapses whitespace in a natural patient key.
// Case is preserved; identifiers are compared exactly. Returns "" for nil
// or blank input.
func NormalizeKey(v *string) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(*v)
	return multiSpace.ReplaceAllString(s, " ")
}

// NormalizeHeader lowercases a column header and folds runs of
// non-alphanumerics into single underscores: "Fasting Glucose" and
// "fasting-glucose" both become "fasting_glucose".
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = nonHeaderChar.ReplaceAllString(h, "_")
	return strings.Trim(h, "_")
}
