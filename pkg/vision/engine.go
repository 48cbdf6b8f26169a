// Package vision runs disc photos through an OCR/vision backend and turns
// the raw annotation into categorized words plus a classified dominant
// color.
package vision

import (
	"context"
	"errors"
)

// ErrNoText is returned when the backend saw no readable text at all.
var ErrNoText = errors.New("no text detected in image")

// RecognizedWord is one token from the backend with its own confidence in
// [0,1].
type RecognizedWord struct {
	Text       string
	Confidence float64
}

// DominantColor is one bucket from the backend's image-property analysis.
type DominantColor struct {
	R, G, B uint8
	Score   float64
}

// Extraction is everything the pipeline needs from one backend call.
type Extraction struct {
	Confidence float64 // page-level text confidence
	Words      []RecognizedWord
	Colors     []DominantColor
}

// Engine is a vision backend. Implementations must be safe for concurrent
// use; one Annotate call is made per analyzed image.
type Engine interface {
	Name() string
	Annotate(ctx context.Context, image []byte) (*Extraction, error)
}
