package categorize

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// SimilarityThreshold is the minimum Sørensen–Dice score a candidate must
// reach to count as a match.
const SimilarityThreshold = 0.75

var dice = metrics.NewSorensenDice()

// BestMatch scores word against every candidate and returns the best one,
// its score, and whether it cleared the threshold. Ties keep the earliest
// candidate in list order, which makes the result deterministic for a
// fixed reference list.
func BestMatch(word string, candidates []string) (string, float64, bool) {
	var best string
	bestScore := -1.0
	for _, cand := range candidates {
		if s := strutil.Similarity(word, cand, dice); s > bestScore {
			best, bestScore = cand, s
		}
	}
	if bestScore >= SimilarityThreshold {
		return best, bestScore, true
	}
	return "", bestScore, false
}
