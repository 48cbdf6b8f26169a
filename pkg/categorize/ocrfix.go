package categorize

// confusionTable maps characters Tesseract/Vision habitually misread onto
// the letter they usually stand for in a stamped disc name. One rune in,
// one rune out; anything absent passes through. Applying the table twice is
// not guaranteed to be a no-op and is not meant to be: it models exactly
// one confusion pass.
var confusionTable = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'2': 'z',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'6': 'b',
	'7': 't',
	'8': 'b',
	'9': 'g',
	'@': 'a',
	'$': 's',
	'!': 'i',
	'|': 'l',
}

// CorrectOCR rewrites confusable characters to their canonical letters.
// Output rune count always equals input rune count.
func CorrectOCR(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if sub, ok := confusionTable[r]; ok {
			r = sub
		}
		out = append(out, r)
	}
	return string(out)
}
