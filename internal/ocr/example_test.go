package ocr_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"base64plus/internal/ocr"
)

// cannedEngine replays a fixed recognition result.
type cannedEngine []ocr.Word

func (e cannedEngine) Name() string { return "canned" }

func (e cannedEngine) NewSession(ctx context.Context) (ocr.Session, error) { return e, nil }

func (e cannedEngine) Recognize(ctx context.Context, image []byte) ([]ocr.Word, error) {
	return e, nil
}

func (e cannedEngine) Close() error { return nil }

// ExampleExtractor shows how engine words become spans: low-confidence noise is
// dropped, edges are rounded and confidence is kept on request.
func ExampleExtractor() {
	engine := cannedEngine{
		{Text: "Base64Plus", Box: ocr.Box{X0: 10.4, Y0: 40, X1: 80.5, Y1: 53}, Confidence: 0.96},
		{Text: "·", Box: ocr.Box{X0: 200, Y0: 80, X1: 202, Y1: 82}, Confidence: 0.05},
		{Text: "Test", Box: ocr.Box{X0: 87, Y0: 40, X1: 115, Y1: 53}, Confidence: 0.91},
	}
	extractor := ocr.NewExtractor(engine)

	spans, err := extractor.Extract(context.Background(), []byte("image bytes"), ocr.Options{IncludeConfidence: true})
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}
	for _, s := range spans {
		fmt.Printf("%s x=%d y=%d w=%d h=%d conf=%.2f\n", s.Text, s.X, s.Y, s.Width, s.Height, *s.Confidence)
	}
	// Output:
	// Base64Plus x=10 y=40 w=71 h=13 conf=0.96
	// Test x=87 y=40 w=28 h=13 conf=0.91
}

// ExampleNewEngine selects an engine by name, the way the CLI does from
// B64P_OCR_ENGINE. Cloud engines read credentials from the environment.
func ExampleNewEngine() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine, err := ocr.NewEngine(ocr.EngineConfig{Name: ocr.EngineVision})
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}

	extractor := ocr.NewExtractor(engine, ocr.WithMinConfidence(0.5))
	spans, err := extractor.Extract(ctx, []byte("...png bytes..."), ocr.Options{})
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}
	fmt.Printf("Recognized %d words\n", len(spans))
}
