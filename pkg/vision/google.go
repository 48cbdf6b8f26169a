package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const defaultAnnotateURL = "https://vision.googleapis.com/v1/images:annotate"

// GoogleEngine calls the Google Vision images:annotate REST endpoint with
// document text detection and image properties in a single request.
type GoogleEngine struct {
	apiKey   string
	endpoint string
	httpc    *http.Client
}

// NewGoogleEngine builds an engine using the given API key. endpoint is
// overridable for tests; pass "" for the production URL.
func NewGoogleEngine(apiKey, endpoint string) *GoogleEngine {
	if endpoint == "" {
		endpoint = defaultAnnotateURL
	}
	return &GoogleEngine{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *GoogleEngine) Name() string { return "google" }

// Wire types for the annotate request/response. Only the fields this
// service reads are declared; everything else in the payload is ignored
// by encoding/json.

type annotateRequest struct {
	Requests []annotationRequest `json:"requests"`
}

type annotationRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []annotationResponse `json:"responses"`
}

type annotationResponse struct {
	FullTextAnnotation *fullTextAnnotation `json:"fullTextAnnotation"`
	ImageProperties    *imageProperties    `json:"imagePropertiesAnnotation"`
	Error              *rpcStatus          `json:"error"`
}

type fullTextAnnotation struct {
	Pages []page `json:"pages"`
	Text  string `json:"text"`
}

type page struct {
	Confidence float64 `json:"confidence"`
	Blocks     []block `json:"blocks"`
}

type block struct {
	Paragraphs []paragraph `json:"paragraphs"`
}

type paragraph struct {
	Words []word `json:"words"`
}

type word struct {
	Confidence float64  `json:"confidence"`
	Symbols    []symbol `json:"symbols"`
}

type symbol struct {
	Text string `json:"text"`
}

type imageProperties struct {
	DominantColors dominantColorList `json:"dominantColors"`
}

type dominantColorList struct {
	Colors []colorInfo `json:"colors"`
}

type colorInfo struct {
	Color rgbColor `json:"color"`
	Score float64  `json:"score"`
}

type rgbColor struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

type rpcStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Annotate submits the image once and flattens the first response into an
// Extraction: every word from every block/paragraph in reading order, plus
// dominant colors sorted by weight.
func (e *GoogleEngine) Annotate(ctx context.Context, image []byte) (*Extraction, error) {
	reqBody := annotateRequest{Requests: []annotationRequest{{
		Image: imageContent{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []feature{
			{Type: "DOCUMENT_TEXT_DETECTION"},
			{Type: "IMAGE_PROPERTIES"},
		},
	}}}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"?key="+e.apiKey, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision status %d", resp.StatusCode)
	}
	var ann annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ann); err != nil {
		return nil, fmt.Errorf("vision decode: %w", err)
	}
	if len(ann.Responses) == 0 {
		return nil, fmt.Errorf("vision returned no responses")
	}
	r := ann.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message)
	}

	ex := &Extraction{}
	if fta := r.FullTextAnnotation; fta != nil && len(fta.Pages) > 0 {
		ex.Confidence = fta.Pages[0].Confidence
		for _, p := range fta.Pages {
			for _, b := range p.Blocks {
				for _, par := range b.Paragraphs {
					for _, w := range par.Words {
						var sb strings.Builder
						for _, s := range w.Symbols {
							sb.WriteString(s.Text)
						}
						ex.Words = append(ex.Words, RecognizedWord{Text: sb.String(), Confidence: w.Confidence})
					}
				}
			}
		}
	}
	if r.ImageProperties != nil {
		for _, c := range r.ImageProperties.DominantColors.Colors {
			ex.Colors = append(ex.Colors, DominantColor{
				R:     uint8(c.Color.Red),
				G:     uint8(c.Color.Green),
				B:     uint8(c.Color.Blue),
				Score: c.Score,
			})
		}
		sort.SliceStable(ex.Colors, func(i, j int) bool { return ex.Colors[i].Score > ex.Colors[j].Score })
	}
	if len(ex.Words) == 0 {
		return nil, ErrNoText
	}
	return ex, nil
}
