package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize strips diacritics, upper-cases and collapses whitespace.
// Every dictionary and registry lookup is keyed by its output.
func Normalize(input string) string {
	if input == "" {
		return ""
	}
	s, _, err := transform.String(stripMarks, input)
	if err != nil {
		s = input
	}
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// CompactKey is Normalize without any spaces, used to compare header labels.
func CompactKey(input string) string {
	return strings.ReplaceAll(Normalize(input), " ", "")
}

// CleanCell trims a raw cell and drops a leading byte order mark.
func CleanCell(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(v)
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
