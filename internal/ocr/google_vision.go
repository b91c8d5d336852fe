package ocr

import (
	"context"
	"fmt"
	"math"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// MaxVisionImageBytes is the Vision API limit for inline image content (20MB).
const MaxVisionImageBytes = 20 * 1024 * 1024

// GoogleVisionEngine implements Engine using Google Cloud Vision API.
// Each session dials its own ImageAnnotatorClient.
type GoogleVisionEngine struct {
	options []option.ClientOption
}

// NewGoogleVisionEngine creates an engine with credentials from environment.
// Credentials are resolved when a session is opened.
func NewGoogleVisionEngine(opts ...option.ClientOption) *GoogleVisionEngine {
	return &GoogleVisionEngine{options: opts}
}

func (g *GoogleVisionEngine) Name() string { return EngineVision }

func (g *GoogleVisionEngine) NewSession(ctx context.Context) (Session, error) {
	const op = "NewSession"

	opts, explicit := credentialOptions()
	opts = append(opts, g.options...)

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if !explicit && len(g.options) == 0 {
			return nil, wrapEngineError(op, EngineVision, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, wrapEngineError(op, EngineVision, fmt.Errorf("%w: %v", ErrDependency, err), "failed to create Vision client")
	}
	return &visionSession{client: client}, nil
}

type visionSession struct {
	client *vision.ImageAnnotatorClient
}

func (s *visionSession) Recognize(ctx context.Context, image []byte) ([]Word, error) {
	const op = "Recognize"

	if len(image) > MaxVisionImageBytes {
		return nil, wrapEngineError(op, EngineVision, ErrOCRFailed, fmt.Sprintf("image too large: %d bytes", len(image)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := s.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, wrapEngineError(op, EngineVision, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.GetResponses()) == 0 {
		return nil, wrapEngineError(op, EngineVision, ErrOCRFailed, "no response from Vision API")
	}

	imgResp := resp.GetResponses()[0]
	if imgResp.GetError() != nil {
		return nil, wrapEngineError(op, EngineVision, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imgResp.GetError().GetMessage()))
	}

	return visionWords(imgResp.GetFullTextAnnotation()), nil
}

func (s *visionSession) Close() error {
	return s.client.Close()
}

// visionWords flattens page > block > paragraph > word into emission order.
func visionWords(annotation *visionpb.TextAnnotation) []Word {
	var words []Word
	for _, page := range annotation.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, paragraph := range block.GetParagraphs() {
				for _, word := range paragraph.GetWords() {
					var text strings.Builder
					for _, symbol := range word.GetSymbols() {
						text.WriteString(symbol.GetText())
					}
					words = append(words, Word{
						Text:       text.String(),
						Box:        visionBox(word.GetBoundingBox()),
						Confidence: float64(word.GetConfidence()),
					})
				}
			}
		}
	}
	return words
}

// visionBox returns the axis-aligned extent of a (possibly rotated) polygon.
func visionBox(poly *visionpb.BoundingPoly) Box {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return Box{}
	}
	box := Box{X0: math.MaxFloat64, Y0: math.MaxFloat64}
	for _, v := range vertices {
		x, y := float64(v.GetX()), float64(v.GetY())
		box.X0 = math.Min(box.X0, x)
		box.Y0 = math.Min(box.Y0, y)
		box.X1 = math.Max(box.X1, x)
		box.Y1 = math.Max(box.Y1, y)
	}
	return box
}
