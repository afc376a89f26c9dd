package common

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail returns the comparison form of an email address:
// trimmed, NFC-normalized and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(email)))
}

// NormalizeName trims a display name and folds it into NFC.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
