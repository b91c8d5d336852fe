package ocr

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocumentAIConfig holds configuration for a Document AI OCR processor.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	Location string

	// ProcessorID is the ID of an OCR (DOCUMENT_OCR) processor.
	ProcessorID string

	// ProcessorVersion pins a processor version. Empty uses the default.
	ProcessorVersion string
}

// ProcessorName returns the full resource name of the processor.
func (c DocumentAIConfig) ProcessorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
	if c.ProcessorVersion != "" {
		name += "/processorVersions/" + c.ProcessorVersion
	}
	return name
}

// DocumentAIEngine implements Engine using a Document AI OCR processor.
type DocumentAIEngine struct {
	config  DocumentAIConfig
	options []option.ClientOption
}

// NewDocumentAIEngine validates cfg and returns an engine. Each session dials
// its own DocumentProcessorClient on the regional endpoint.
func NewDocumentAIEngine(cfg DocumentAIConfig, opts ...option.ClientOption) (*DocumentAIEngine, error) {
	if cfg.ProjectID == "" {
		return nil, NewOCRError("NewDocumentAIEngine", ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if cfg.ProcessorID == "" {
		return nil, NewOCRError("NewDocumentAIEngine", ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	return &DocumentAIEngine{config: cfg, options: opts}, nil
}

func (d *DocumentAIEngine) Name() string { return EngineDocumentAI }

func (d *DocumentAIEngine) NewSession(ctx context.Context) (Session, error) {
	const op = "NewSession"

	opts, explicit := credentialOptions()
	if d.config.Location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", d.config.Location)))
	}
	opts = append(opts, d.options...)

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		if !explicit && len(d.options) == 0 {
			return nil, wrapEngineError(op, EngineDocumentAI, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, wrapEngineError(op, EngineDocumentAI, fmt.Errorf("%w: %v", ErrDependency, err), "failed to create Document AI client")
	}
	return &documentAISession{client: client, name: d.config.ProcessorName()}, nil
}

type documentAISession struct {
	client *documentai.DocumentProcessorClient
	name   string
}

func (s *documentAISession) Recognize(ctx context.Context, image []byte) ([]Word, error) {
	const op = "Recognize"

	req := &documentaipb.ProcessRequest{
		Name: s.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: http.DetectContentType(image),
			},
		},
	}

	resp, err := s.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, wrapEngineError(op, EngineDocumentAI, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
	if resp.GetDocument() == nil {
		return nil, wrapEngineError(op, EngineDocumentAI, ErrOCRFailed, "no document in response")
	}
	return documentAIWords(resp.GetDocument()), nil
}

func (s *documentAISession) Close() error {
	return s.client.Close()
}

// documentAIWords maps page tokens to words. An image yields a single page.
func documentAIWords(doc *documentaipb.Document) []Word {
	var words []Word
	text := doc.GetText()
	for _, page := range doc.GetPages() {
		width := float64(page.GetDimension().GetWidth())
		height := float64(page.GetDimension().GetHeight())
		for _, token := range page.GetTokens() {
			layout := token.GetLayout()
			words = append(words, Word{
				Text:       anchorText(text, layout.GetTextAnchor()),
				Box:        layoutBox(layout.GetBoundingPoly(), width, height),
				Confidence: float64(layout.GetConfidence()),
			})
		}
	}
	return words
}

// anchorText resolves the text segments of an anchor against the document text.
// Tokens carry their trailing whitespace, which is trimmed.
func anchorText(text string, anchor *documentaipb.Document_TextAnchor) string {
	var out []byte
	for _, seg := range anchor.GetTextSegments() {
		start, end := seg.GetStartIndex(), seg.GetEndIndex()
		if start < 0 || end > int64(len(text)) || start >= end {
			continue
		}
		out = append(out, text[start:end]...)
	}
	return strings.TrimSpace(string(out))
}

// layoutBox prefers absolute vertices and falls back to normalized vertices
// scaled by the page dimension.
func layoutBox(poly *documentaipb.BoundingPoly, width, height float64) Box {
	var xs, ys []float64
	if vs := poly.GetVertices(); len(vs) > 0 {
		for _, v := range vs {
			xs = append(xs, float64(v.GetX()))
			ys = append(ys, float64(v.GetY()))
		}
	} else {
		for _, v := range poly.GetNormalizedVertices() {
			xs = append(xs, float64(v.GetX())*width)
			ys = append(ys, float64(v.GetY())*height)
		}
	}
	if len(xs) == 0 {
		return Box{}
	}
	box := Box{X0: math.MaxFloat64, Y0: math.MaxFloat64}
	for i := range xs {
		box.X0 = math.Min(box.X0, xs[i])
		box.Y0 = math.Min(box.Y0, ys[i])
		box.X1 = math.Max(box.X1, xs[i])
		box.Y1 = math.Max(box.Y1, ys[i])
	}
	return box
}
