package billparse

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	nameCodes   = regexp.MustCompile(`[A-Z0-9_-]{3,}`)
	nameDigits  = regexp.MustCompile(`\d+`)
	nameAmounts = regexp.MustCompile(`[$€£]?[\d.,]+`)
	nameSpaces  = regexp.MustCompile(`\s+`)
)

// productName guesses a label by removing code-like tokens, numbers and
// amounts from the line. Code matching is case-sensitive so ordinary
// lowercase words survive.
func productName(line string) string {
	s := nameCodes.ReplaceAllString(line, "")
	s = nameDigits.ReplaceAllString(s, "")
	s = nameAmounts.ReplaceAllString(s, "")
	s = strings.TrimSpace(nameSpaces.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(s) > 2 {
		return s
	}
	return ""
}
