package categorize

import (
	"regexp"
	"strings"
)

var nonWordRE = regexp.MustCompile(`[^a-z0-9.]+`)

// Normalize lowercases a raw OCR token and strips everything outside
// [a-z0-9.]. Dots survive because mold names like "p2" vs "p2.0" and
// stamped model numbers carry them. Idempotent.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return nonWordRE.ReplaceAllString(s, "")
}

var digitsRE = regexp.MustCompile(`[^0-9]+`)

// onlyDigits strips everything but digits.
func onlyDigits(s string) string {
	return digitsRE.ReplaceAllString(s, "")
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
