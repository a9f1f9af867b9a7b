package registry

import (
	"regexp"
	"strconv"
	"unicode"
)

var illegalRun = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Sanitize derives an identifier- and path-safe title from a
// downstream tool's wire name: runs of characters outside
// [A-Za-z0-9_] collapse to a single underscore, and a leading digit
// gets an underscore prefix. Sanitize is idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	s := illegalRun.ReplaceAllString(name, "_")
	if s == "" {
		return "_"
	}
	if r := []rune(s)[0]; unicode.IsDigit(r) {
		s = "_" + s
	}
	return s
}

// Disambiguate appends a numeric suffix to title until it no longer
// collides with any entry in taken, mutating taken with the chosen
// result.
func Disambiguate(title string, taken map[string]bool) string {
	if !taken[title] {
		taken[title] = true
		return title
	}
	for n := 2; ; n++ {
		candidate := title + "_" + strconv.Itoa(n)
		if !taken[candidate] {
			taken[candidate] = true
			return candidate
		}
	}
}
