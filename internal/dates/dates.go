// Package dates normalizes the date spellings seen on rendered case pages
// into the canonical YYYY-MM-DD form used everywhere downstream.
package dates

import (
	"regexp"
	"strings"
	"time"
)

// Layouts tried in order. The abbreviated-month form is by far the most
// common on the source pages, so it goes first.
var layouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"01/02/2006",
}

const isoLayout = "2006-01-02"

var isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Normalize parses a human-readable date string and returns it as
// YYYY-MM-DD. When no known layout matches, the input is returned
// unchanged; callers filter non-ISO output with IsISO before trusting it.
func Normalize(s string) string {
	text := strings.TrimSpace(s)
	folded := foldMonthCase(text)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, folded); err == nil {
			return t.Format(isoLayout)
		}
	}
	return text
}

// foldMonthCase rewrites "MAY 9, 2025" or "march 17, 2025" so the month
// token matches Go's case-sensitive reference layouts. The source pages
// render history dates in all caps.
func foldMonthCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if f == "" || f[0] < 'A' || (f[0] > 'Z' && f[0] < 'a') || f[0] > 'z' {
			continue
		}
		lower := strings.ToLower(f)
		fields[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(fields, " ")
}

// IsISO reports whether s has the strict day-precision YYYY-MM-DD shape.
func IsISO(s string) bool {
	if !isoPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(isoLayout, s)
	return err == nil
}
