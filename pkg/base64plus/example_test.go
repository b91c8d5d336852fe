package base64plus_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"time"

	"base64plus/internal/ocr"
	"base64plus/pkg/base64plus"
)

// fixedEngine reports the same words for every image.
type fixedEngine []ocr.Word

func (e fixedEngine) Name() string { return "fixed" }

func (e fixedEngine) NewSession(ctx context.Context) (ocr.Session, error) { return e, nil }

func (e fixedEngine) Recognize(ctx context.Context, image []byte) ([]ocr.Word, error) {
	return e, nil
}

func (e fixedEngine) Close() error { return nil }

func blankPNG(w, h int) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)))
	return buf.Bytes()
}

// Example encodes an in-memory image and reads the spans back.
func Example() {
	engine := fixedEngine{
		{Text: "Hello", Box: ocr.Box{X0: 4.4, Y0: 10, X1: 40.6, Y1: 22}, Confidence: 0.93},
		{Text: "world", Box: ocr.Box{X0: 48, Y0: 10, X1: 90, Y1: 22}, Confidence: 0.88},
		{Text: "speck", Box: ocr.Box{X0: 1, Y0: 1, X1: 2, Y1: 2}, Confidence: 0.02},
	}
	client := base64plus.New(base64plus.DefaultConfig(engine))

	env, err := client.Encode(context.Background(), blankPNG(120, 40), base64plus.EncodeOptions{})
	if err != nil {
		log.Fatalf("encode: %v", err)
	}

	res, err := client.Decode(env)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}

	fmt.Println("format:", res.Format)
	for _, s := range res.Spans {
		fmt.Printf("%s at (%d,%d) %dx%d\n", s.Text, s.X, s.Y, s.Width, s.Height)
	}
	// Output:
	// format: png
	// Hello at (4,10) 37x12
	// world at (48,10) 42x12
}

// ExampleClient_Render shows the decode-and-annotate path for an envelope file
// produced earlier, using the locally installed engine.
func ExampleClient_Render() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine, err := ocr.NewEngine(ocr.EngineConfig{Name: ocr.EngineAuto, Languages: []string{"eng"}})
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}
	client := base64plus.New(base64plus.DefaultConfig(engine))

	env, err := client.Encode(ctx, "receipt.jpg", base64plus.DefaultEncodeOptions())
	if err != nil {
		log.Fatalf("Failed to encode image: %v", err)
	}

	res, err := client.Decode(env)
	if err != nil {
		log.Fatalf("Failed to decode envelope: %v", err)
	}

	if err := client.Render(res, "receipt.annotated.png"); err != nil {
		log.Fatalf("Failed to render overlay: %v", err)
	}
	fmt.Printf("Rendered %d text regions\n", len(res.Spans))
}
