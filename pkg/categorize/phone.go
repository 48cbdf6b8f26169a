package categorize

import "regexp"

// Phone detection runs in two modes. Digit-run mode tests the bare digits
// accumulated across adjacent tokens; formatted mode tests a single raw
// token that already carries NANP punctuation, which normalization would
// otherwise destroy.
var (
	phoneDigitsRE    = regexp.MustCompile(`^1?[0-9]{10}$`)
	phoneFormattedRE = regexp.MustCompile(`^(\+?1[-. ]?)?\(?[0-9]{3}\)?[-. ][0-9]{3}[-. ]?[0-9]{4}$`)
)

// IsPhoneDigits reports whether a digit string is a ten-digit
// North-American number, optionally with a leading 1.
func IsPhoneDigits(digits string) bool {
	return phoneDigitsRE.MatchString(digits)
}

// IsFormattedPhone reports whether a raw token is a complete phone number
// with separators already present, e.g. "(555) 123-4567" or "555-123-4567".
func IsFormattedPhone(raw string) bool {
	return phoneFormattedRE.MatchString(raw)
}
