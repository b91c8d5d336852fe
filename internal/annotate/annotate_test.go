package annotate

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/draw"

	"base64plus/internal/logger"
	"base64plus/pkg/models"
)

func whiteImage(t *testing.T, w, h int, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	var err error
	if format == "jpeg" {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func newTestAnnotator() *Annotator {
	return New(DefaultStyle()).WithLogger(logger.Nop())
}

func TestAnnotateKeepsDimensionsAndEncodesPNG(t *testing.T) {
	res := &models.DecodedResult{
		Image:  whiteImage(t, 300, 100, "jpeg"),
		Format: "jpeg",
		Spans: []models.TextSpan{
			{Text: "Base64Plus", X: 10, Y: 10, Width: 100, Height: 30},
			{Text: "edge", X: 280, Y: 90, Width: 50, Height: 50},
			{Text: "outside", X: 400, Y: 400, Width: 5, Height: 5},
		},
	}

	out, err := newTestAnnotator().Annotate(res)
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" {
		t.Fatalf("output format = %q, want png", format)
	}
	if cfg.Width != 300 || cfg.Height != 100 {
		t.Fatalf("output size = %dx%d, want 300x100", cfg.Width, cfg.Height)
	}
}

func TestAnnotateDrawsOutlineAndFill(t *testing.T) {
	res := &models.DecodedResult{
		Image:  whiteImage(t, 50, 50, "png"),
		Format: "png",
		Spans:  []models.TextSpan{{Text: "x", X: 10, Y: 10, Width: 20, Height: 20}},
	}
	out, err := newTestAnnotator().Annotate(res)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}

	rgba := func(x, y int) (uint8, uint8, uint8) {
		r, g, b, _ := img.At(x, y).RGBA()
		return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
	}

	if r, g, b := rgba(10, 10); r != 255 || g != 0 || b != 0 {
		t.Fatalf("outline pixel = (%d,%d,%d), want red", r, g, b)
	}
	if r, g, b := rgba(11, 20); r != 255 || g != 0 || b != 0 {
		t.Fatalf("second stroke pixel = (%d,%d,%d), want red", r, g, b)
	}
	r, g, b := rgba(20, 20)
	if r != 255 || g >= 255 || g < 150 || g != b {
		t.Fatalf("fill pixel = (%d,%d,%d), want light red tint", r, g, b)
	}
	if r, g, b := rgba(5, 5); r != 255 || g != 255 || b != 255 {
		t.Fatalf("pixel outside box = (%d,%d,%d), want white", r, g, b)
	}
}

func TestAnnotateSkipsInvalidSizes(t *testing.T) {
	res := &models.DecodedResult{
		Image:  whiteImage(t, 50, 50, "png"),
		Format: "png",
		Spans: []models.TextSpan{
			// Would normalize to the rectangle (10,10)-(30,30) if drawn.
			{Text: "neg", X: 30, Y: 30, Width: -20, Height: -20},
			{Text: "wide", X: math.MaxInt - 5, Y: 0, Width: 10, Height: 10},
		},
	}
	out, err := newTestAnnotator().Annotate(res)
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []image.Point{{10, 10}, {20, 20}, {29, 29}, {0, 0}} {
		if r, g, b, _ := img.At(p.X, p.Y).RGBA(); r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
			t.Fatalf("pixel %v = (%d,%d,%d), want untouched white", p, r>>8, g>>8, b>>8)
		}
	}
}

func TestSpanRect(t *testing.T) {
	tests := []struct {
		span models.TextSpan
		want image.Rectangle
		ok   bool
	}{
		{models.TextSpan{X: 1, Y: 2, Width: 3, Height: 4}, image.Rect(1, 2, 4, 6), true},
		{models.TextSpan{X: 1, Y: 2}, image.Rect(1, 2, 1, 2), true},
		{models.TextSpan{X: 5, Y: 5, Width: -1, Height: 2}, image.Rectangle{}, false},
		{models.TextSpan{X: 5, Y: 5, Width: 2, Height: -1}, image.Rectangle{}, false},
		{models.TextSpan{X: 1, Y: math.MaxInt, Width: 1, Height: 1}, image.Rectangle{}, false},
	}
	for _, tt := range tests {
		got, ok := spanRect(tt.span)
		if ok != tt.ok || got != tt.want {
			t.Errorf("spanRect(%+v) = %v, %v; want %v, %v", tt.span, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAnnotateRejectsGarbage(t *testing.T) {
	_, err := newTestAnnotator().Annotate(&models.DecodedResult{Image: []byte("nope")})
	if !errors.Is(err, ErrImageDecode) {
		t.Fatalf("Annotate() error = %v, want ErrImageDecode", err)
	}
}

func TestRenderAndSave(t *testing.T) {
	dir := t.TempDir()
	src := whiteImage(t, 20, 10, "jpeg")
	res := &models.DecodedResult{Image: src, Format: "jpeg", Spans: []models.TextSpan{{Text: "a", Width: 5, Height: 5}}}

	annotated := filepath.Join(dir, "annotated.png")
	if err := newTestAnnotator().Render(res, annotated); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	data, err := os.ReadFile(annotated)
	if err != nil {
		t.Fatal(err)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err != nil || format != "png" {
		t.Fatalf("rendered file format = %q, %v", format, err)
	}

	raw := filepath.Join(dir, "decoded.jpg")
	if err := Save(res, raw); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved, err := os.ReadFile(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(saved, src) {
		t.Fatal("Save() altered the image bytes")
	}

	if err := Save(res, filepath.Join(dir, "missing", "x.jpg")); err == nil {
		t.Fatal("expected I/O error for missing directory")
	}
}

func TestEdges(t *testing.T) {
	if edges(image.Rect(0, 0, 10, 10), 0) != nil {
		t.Fatal("zero stroke should yield no edges")
	}
	for _, e := range edges(image.Rect(0, 0, 1, 1), 5) {
		if !e.In(image.Rect(0, 0, 1, 1)) {
			t.Fatalf("edge %v escapes the box", e)
		}
	}
}
