package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs OCR locally via gosseract. It exists so the service
// stays usable in development and offline setups without a hosted vision
// key; dominant colors come from a coarse histogram over a thumbnail since
// Tesseract has no image-property analysis.
type TesseractEngine struct {
	lang string
}

func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{lang: "eng"}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Annotate(ctx context.Context, img []byte) (*Extraction, error) {
	decoded, err := imaging.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	prepped, err := encodePNG(preprocess(decoded))
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.lang); err != nil {
		return nil, fmt.Errorf("tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(prepped); err != nil {
		return nil, fmt.Errorf("tesseract image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract boxes: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	ex := &Extraction{Colors: dominantColors(decoded)}
	var confSum float64
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		c := b.Confidence / 100
		ex.Words = append(ex.Words, RecognizedWord{Text: b.Word, Confidence: c})
		confSum += c
	}
	if len(ex.Words) == 0 {
		return nil, ErrNoText
	}
	ex.Confidence = confSum / float64(len(ex.Words))
	return ex, nil
}

// preprocess mirrors what helps Tesseract on stamped plastic: grayscale,
// a contrast bump, and upscaling small photos.
func preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	if gray.Bounds().Dy() < 900 {
		return imaging.Resize(gray, 0, 1300, imaging.Lanczos)
	}
	return gray
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// dominantColors quantizes a 64x64 thumbnail to 4 levels per channel and
// returns the three most populated buckets, scored by pixel fraction.
func dominantColors(img image.Image) []DominantColor {
	thumb := imaging.Resize(img, 64, 64, imaging.Box)
	type bucket struct {
		count   int
		r, g, b int // channel sums for averaging
	}
	buckets := map[int]*bucket{}
	bounds := thumb.Bounds()
	total := bounds.Dx() * bounds.Dy()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r16, g16, b16, _ := thumb.At(x, y).RGBA()
			r, g, b := int(r16>>8), int(g16>>8), int(b16>>8)
			key := (r>>6)<<4 | (g>>6)<<2 | b>>6
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.count++
			bk.r += r
			bk.g += g
			bk.b += b
		}
	}
	var out []DominantColor
	for len(out) < 3 && len(buckets) > 0 {
		bestKey, best := -1, (*bucket)(nil)
		for k, bk := range buckets {
			if best == nil || bk.count > best.count || (bk.count == best.count && k < bestKey) {
				bestKey, best = k, bk
			}
		}
		delete(buckets, bestKey)
		out = append(out, DominantColor{
			R:     uint8(best.r / best.count),
			G:     uint8(best.g / best.count),
			B:     uint8(best.b / best.count),
			Score: float64(best.count) / float64(total),
		})
	}
	return out
}
