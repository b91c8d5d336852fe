package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	// Extra decoders so BMP, TIFF and WebP inputs can be normalized.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"base64plus/pkg/models"
)

// DefaultJPEGQuality is used when a RasterCodec is built with quality <= 0.
const DefaultJPEGQuality = 90

// Metadata describes an encoded image without decoding its pixels.
type Metadata struct {
	Format string // decoder name as registered with the image package, e.g. "png", "jpeg", "webp"
	Width  int
	Height int
}

// Codec is the image-processing capability used by the Normalizer.
type Codec interface {
	// Reencode converts data into the target format ("png" or "jpeg").
	Reencode(data []byte, format string) ([]byte, error)

	// Metadata reports the embedded format and dimensions of data.
	Metadata(data []byte) (Metadata, error)
}

// RasterCodec implements Codec with the standard PNG/JPEG encoders.
type RasterCodec struct {
	quality int
}

// NewRasterCodec returns a codec encoding JPEG at the given quality (1-100).
func NewRasterCodec(jpegQuality int) *RasterCodec {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &RasterCodec{quality: jpegQuality}
}

func (c *RasterCodec) Metadata(data []byte) (Metadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, fmt.Errorf("decode image config: %w", err)
	}
	return Metadata{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func (c *RasterCodec) Reencode(data []byte, format string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	switch models.CanonicalFormat(format) {
	case models.FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
