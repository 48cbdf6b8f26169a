// Package categorize tags OCR-recognized words from disc photos as phone
// numbers, brand names, mold names, or nothing. Matching is fuzzy: words go
// through a confusion-character correction pass before being scored against
// the reference lists, and digit runs split across adjacent words are
// stitched back together before the phone pattern is tested.
package categorize

import (
	"strings"
)

// Category values carried on classified words. String values match the
// public API contract, so they are not renamable constants.
type Category string

const (
	CategoryPhone Category = "Phone Number"
	CategoryBrand Category = "Brand"
	CategoryDisc  Category = "Disc"
	CategoryNone  Category = "N/A"
)

// Word is one recognized token. Text and Confidence come from the vision
// provider; Category is filled by Categorize.
type Word struct {
	Text       string
	Confidence float64
	Category   Category
}

// ReferenceLists holds the lowercase brand and mold names fetched from the
// catalog at the start of a categorization pass. Empty lists are valid and
// simply mean nothing can match Brand/Disc.
type ReferenceLists struct {
	Brands []string
	Discs  []string
}

type accumState int

const (
	stateIdle accumState = iota
	stateAccumulating
)

// accumulator stitches consecutive all-digit tokens into one candidate
// phone number. Lifetime is a single Categorize call.
type accumulator struct {
	state  accumState
	digits strings.Builder
	// lowest confidence among the tokens that built the current run
	conf float64
}

func (a *accumulator) push(digits string, conf float64) {
	if a.state == stateIdle || conf < a.conf {
		a.conf = conf
	}
	a.state = stateAccumulating
	a.digits.WriteString(digits)
}

func (a *accumulator) reset() {
	a.state = stateIdle
	a.digits.Reset()
	a.conf = 0
}

// flush returns a PhoneNumber word if the accumulated run currently forms a
// valid number, and resets either way.
func (a *accumulator) flush() (Word, bool) {
	defer a.reset()
	if a.state == stateAccumulating && IsPhoneDigits(a.digits.String()) {
		return Word{Text: a.digits.String(), Confidence: a.conf, Category: CategoryPhone}, true
	}
	return Word{}, false
}

// Categorize walks the recognized words in order and tags each with a
// category. Consecutive all-digit tokens collapse into a single PhoneNumber
// entry, so the output may be shorter than the input. The pass is
// deterministic for a given input and reference lists.
func Categorize(words []Word, refs ReferenceLists) []Word {
	out := make([]Word, 0, len(words))
	var acc accumulator

	for _, w := range words {
		raw := strings.TrimSpace(w.Text)
		norm := Normalize(raw)
		if norm == "" && !IsFormattedPhone(raw) {
			continue
		}

		// Already-punctuated numbers like "(555) 123-4567" or
		// "555-123-4567" never survive normalization as digit runs, so
		// they get tested whole before anything else.
		if IsFormattedPhone(raw) {
			if ph, ok := acc.flush(); ok {
				out = append(out, ph)
			}
			out = append(out, Word{Text: onlyDigits(raw), Confidence: w.Confidence, Category: CategoryPhone})
			continue
		}

		if isAllDigits(norm) {
			acc.push(norm, w.Confidence)
			if IsPhoneDigits(acc.digits.String()) {
				ph, _ := acc.flush()
				out = append(out, ph)
			}
			continue
		}

		// Non-digit word ends any pending run; keep it only if it already
		// formed a complete number.
		if ph, ok := acc.flush(); ok {
			out = append(out, ph)
		}

		corrected := CorrectOCR(norm)
		entry := Word{Text: norm, Confidence: w.Confidence, Category: CategoryNone}
		if _, _, ok := BestMatch(corrected, refs.Brands); ok {
			entry.Category = CategoryBrand
		} else if _, _, ok := BestMatch(corrected, refs.Discs); ok {
			entry.Category = CategoryDisc
		}
		out = append(out, entry)
	}

	if ph, ok := acc.flush(); ok {
		out = append(out, ph)
	}
	return out
}
