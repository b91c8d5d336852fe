package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"base64plus/internal/logger"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func newTestNormalizer(codec Codec) *Normalizer {
	return NewNormalizer(codec).WithLogger(logger.Nop())
}

func TestNewSourceRejectsOtherKinds(t *testing.T) {
	for _, v := range []any{42, nil, 3.5, []string{"a.png"}, ""} {
		if _, err := NewSource(v); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("NewSource(%#v) error = %v, want ErrInvalidInput", v, err)
		}
	}
	if _, err := NewSource("img.png"); err != nil {
		t.Fatalf("NewSource(path) error = %v", err)
	}
	if _, err := NewSource([]byte{1}); err != nil {
		t.Fatalf("NewSource(bytes) error = %v", err)
	}
}

func TestNormalizeMissingPath(t *testing.T) {
	n := newTestNormalizer(NewRasterCodec(0))
	_, _, err := n.Normalize(FromPath(filepath.Join(t.TempDir(), "missing.png")), "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Normalize() error = %v, want ErrNotFound", err)
	}
}

func TestNormalizeFormatResolution(t *testing.T) {
	dir := t.TempDir()
	jpgPath := filepath.Join(dir, "photo.JPG")
	if err := os.WriteFile(jpgPath, pngBytes(t, 8, 8), 0o644); err != nil {
		t.Fatal(err)
	}
	rawPath := filepath.Join(dir, "photo.dat")
	if err := os.WriteFile(rawPath, jpegBytes(t, 8, 8), 0o644); err != nil {
		t.Fatal(err)
	}

	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, testImage(4, 4)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		src       Source
		requested string
		want      string
	}{
		{"explicit wins over extension", FromPath(jpgPath), "png", "png"},
		{"explicit jpg canonicalized", FromBytes(pngBytes(t, 4, 4)), "JPG", "jpeg"},
		{"explicit unsupported coerced", FromBytes(pngBytes(t, 4, 4)), "gif", "png"},
		{"extension jpg", FromPath(jpgPath), "", "jpeg"},
		{"metadata jpeg", FromPath(rawPath), "", "jpeg"},
		{"metadata png bytes", FromBytes(pngBytes(t, 4, 4)), "", "png"},
		{"metadata bmp coerced", FromBytes(bmpBuf.Bytes()), "", "png"},
	}

	n := newTestNormalizer(NewRasterCodec(0))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, format, err := n.Normalize(tt.src, tt.requested)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if format != tt.want {
				t.Fatalf("format = %q, want %q", format, tt.want)
			}
			_, decoded, err := image.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("output is not an image: %v", err)
			}
			if decoded != format {
				t.Fatalf("output encoded as %q, labelled %q", decoded, format)
			}
		})
	}
}

func TestNormalizePassThrough(t *testing.T) {
	in := jpegBytes(t, 6, 6)
	n := newTestNormalizer(nil)
	if n.Reencodes() {
		t.Fatal("nil codec must not report re-encoding")
	}

	data, format, err := n.Normalize(FromBytes(in), "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if format != "png" {
		t.Fatalf("format = %q, want png default without codec", format)
	}
	if !bytes.Equal(data, in) {
		t.Fatal("pass-through mode changed the bytes")
	}

	_, format, err = n.Normalize(FromBytes(in), "jpg")
	if err != nil || format != "jpeg" {
		t.Fatalf("Normalize(jpg) = %q, %v", format, err)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := newTestNormalizer(NewRasterCodec(75))
	in := pngBytes(t, 16, 16)
	a, _, err := n.Normalize(FromBytes(in), "jpeg")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := n.Normalize(FromBytes(in), "jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("re-encoding the same input produced different bytes")
	}
}

func TestNormalizeGarbageWithCodec(t *testing.T) {
	n := newTestNormalizer(NewRasterCodec(0))
	_, _, err := n.Normalize(FromBytes([]byte("not an image")), "png")
	if !errors.Is(err, ErrReencodeFailed) {
		t.Fatalf("Normalize() error = %v, want ErrReencodeFailed", err)
	}
}

func TestRasterCodecMetadata(t *testing.T) {
	meta, err := NewRasterCodec(0).Metadata(pngBytes(t, 30, 10))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Format != "png" || meta.Width != 30 || meta.Height != 10 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}
