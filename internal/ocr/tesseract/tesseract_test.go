package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"base64plus/internal/logger"
	"base64plus/internal/ocr"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func renderText(t *testing.T, text string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 50),
	}
	d.DrawString(text)

	// Upscale 3x so Tesseract sees a usable glyph height.
	big := image.NewRGBA(image.Rect(0, 0, 900, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 900; x++ {
			big.Set(x, y, img.At(x/3, y/3))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, big); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRegistered(t *testing.T) {
	engine, err := ocr.NewEngine(ocr.EngineConfig{Name: "auto"})
	if err != nil {
		t.Fatalf("NewEngine(auto) error = %v", err)
	}
	if engine.Name() != ocr.EngineTesseract {
		t.Fatalf("auto resolved to %q", engine.Name())
	}
}

func TestEngineExtract(t *testing.T) {
	ensureTesseractAvailable(t)

	extractor := ocr.NewExtractor(NewEngine("eng"), ocr.WithLogger(logger.Nop()))
	spans, err := extractor.Extract(context.Background(), renderText(t, "Base64Plus Test"), ocr.Options{IncludeConfidence: true})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	var words []string
	for _, s := range spans {
		if s.Confidence == nil {
			t.Fatalf("span %q missing confidence", s.Text)
		}
		if s.X+s.Width > 900 || s.Y+s.Height > 300 {
			t.Fatalf("span %q outside image: %+v", s.Text, s)
		}
		words = append(words, s.Text)
	}
	if got := strings.Join(words, " "); !strings.Contains(got, "Test") {
		t.Logf("recognized %q (OCR quality varies by tesseract version)", got)
	}
}
