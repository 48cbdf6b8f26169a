package vision

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"discrescue/pkg/catalog"
	"discrescue/pkg/categorize"
	"discrescue/pkg/colorname"
)

// maxSubmitBytes is the largest payload sent to a backend as-is; bigger
// images get downscaled and re-encoded first.
const maxSubmitBytes = 4 << 20

// Analysis is the success shape of one pipeline run. JSON tags match the
// public response contract.
type Analysis struct {
	Text   TextResult    `json:"text"`
	Colors []ColorResult `json:"colors"`
}

type TextResult struct {
	Confidence float64      `json:"confidence"`
	Words      []WordResult `json:"words"`
}

type WordResult struct {
	Confidence float64 `json:"confidence"`
	Word       string  `json:"word"`
	Category   string  `json:"category"`
}

type ColorResult struct {
	Primary string  `json:"primary"`
	Score   float64 `json:"score"`
}

// Pipeline wires one vision backend to the categorizer and color
// classifier. Stateless across calls; reference data is fetched fresh per
// run.
type Pipeline struct {
	engine Engine
	refs   catalog.Fetcher
}

func NewPipeline(engine Engine, refs catalog.Fetcher) *Pipeline {
	return &Pipeline{engine: engine, refs: refs}
}

// Analyze runs one image end to end: annotate, categorize every word,
// classify the top dominant color. Any backend or processing failure is
// returned as an error with no partial result.
func (p *Pipeline) Analyze(ctx context.Context, img []byte) (*Analysis, error) {
	img, err := shrinkIfOversized(img)
	if err != nil {
		return nil, err
	}
	ex, err := p.engine.Annotate(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("annotate (%s): %w", p.engine.Name(), err)
	}

	lists := p.refs.Fetch(ctx)
	words := make([]categorize.Word, 0, len(ex.Words))
	for _, w := range ex.Words {
		words = append(words, categorize.Word{Text: w.Text, Confidence: w.Confidence})
	}
	tagged := categorize.Categorize(words, categorize.ReferenceLists{Brands: lists.Brands, Discs: lists.Discs})

	out := &Analysis{Text: TextResult{Confidence: ex.Confidence, Words: make([]WordResult, 0, len(tagged))}}
	for _, w := range tagged {
		out.Text.Words = append(out.Text.Words, WordResult{
			Confidence: w.Confidence,
			Word:       w.Text,
			Category:   string(w.Category),
		})
	}
	if len(ex.Colors) > 0 {
		top := ex.Colors[0]
		cl := colorname.Classify(top.R, top.G, top.B, top.Score)
		out.Colors = append(out.Colors, ColorResult{Primary: cl.Family, Score: cl.Score})
	}
	return out, nil
}

func shrinkIfOversized(img []byte) ([]byte, error) {
	if len(img) <= maxSubmitBytes {
		return img, nil
	}
	decoded, err := imaging.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode oversized image: %w", err)
	}
	fitted := imaging.Fit(decoded, 2000, 2000, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("re-encode oversized image: %w", err)
	}
	return buf.Bytes(), nil
}
