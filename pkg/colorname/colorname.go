// Package colorname maps an RGB dominant color to a human color name and
// buckets that name into a small set of disc color families.
package colorname

import (
	"strings"

	"golang.org/x/image/colornames"
)

// Classification is the result of classifying one dominant color.
type Classification struct {
	Family  string  // Red, Blue, Yellow or Unknown
	RawName string  // nearest SVG color name, e.g. "firebrick"
	Score   float64 // weight of the dominant color, carried from the caller
}

// familyKeywords buckets SVG color names by substring. Order matters:
// earlier families win when a name matches several lists.
var familyKeywords = []struct {
	family   string
	keywords []string
}{
	{"Red", []string{"red", "crimson", "maroon", "firebrick", "salmon", "tomato", "coral", "pink"}},
	{"Blue", []string{"blue", "navy", "teal", "turquoise", "cyan", "aqua", "azure"}},
	{"Yellow", []string{"yellow", "gold", "khaki", "lemon", "orange"}},
}

// Name returns the SVG 1.1 color name nearest to the given RGB by squared
// channel distance. colornames.Names is sorted, so the scan is
// deterministic.
func Name(r, g, b uint8) string {
	best := ""
	bestDist := 1 << 30
	for _, name := range colornames.Names {
		c := colornames.Map[name]
		dr := int(c.R) - int(r)
		dg := int(c.G) - int(g)
		db := int(c.B) - int(b)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// Classify names the color and assigns it to the first family whose
// keyword list matches the name. Names outside every list classify as
// Unknown.
func Classify(r, g, b uint8, score float64) Classification {
	name := Name(r, g, b)
	lower := strings.ToLower(name)
	for _, f := range familyKeywords {
		for _, kw := range f.keywords {
			if strings.Contains(lower, kw) {
				return Classification{Family: f.family, RawName: name, Score: score}
			}
		}
	}
	return Classification{Family: "Unknown", RawName: name, Score: score}
}
