package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize composes text to NFC, collapses every whitespace run (newlines included) to a
// single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
