// Package annotate renders text-span bounding boxes over a decoded envelope
// image. Output is always PNG so the translucent overlay survives.
package annotate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	// Decoders for envelope payloads.
	_ "image/jpeg"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"base64plus/internal/logger"
	"base64plus/pkg/models"
)

// ErrImageDecode is returned when the envelope image cannot be decoded.
var ErrImageDecode = errors.New("cannot decode envelope image")

// Style controls the overlay appearance.
type Style struct {
	Outline     color.NRGBA
	Fill        color.NRGBA
	StrokeWidth int
}

// DefaultStyle is a 2px red outline over a red fill at 20% opacity.
func DefaultStyle() Style {
	return Style{
		Outline:     color.NRGBA{R: 255, A: 255},
		Fill:        color.NRGBA{R: 255, A: 51},
		StrokeWidth: 2,
	}
}

// Annotator draws span boxes onto images.
type Annotator struct {
	style Style
	log   zerolog.Logger
}

// New returns an Annotator using style.
func New(style Style) *Annotator {
	if style.StrokeWidth < 0 {
		style.StrokeWidth = 0
	}
	return &Annotator{
		style: style,
		log:   logger.WithComponent("annotator"),
	}
}

// WithLogger replaces the annotator's logger.
func (a *Annotator) WithLogger(l zerolog.Logger) *Annotator {
	a.log = l
	return a
}

// Annotate draws every span in order (fill, then outline) at the image's native
// size and returns the result encoded as PNG. Boxes are clipped to the image.
func (a *Annotator) Annotate(res *models.DecodedResult) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(res.Image))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	fill := image.NewUniform(a.style.Fill)
	outline := image.NewUniform(a.style.Outline)

	clipped, skipped := 0, 0
	for _, span := range res.Spans {
		box, ok := spanRect(span)
		if !ok {
			skipped++
			continue
		}
		box = box.Add(bounds.Min)
		if !box.In(bounds) {
			clipped++
		}
		box = box.Intersect(bounds)
		if box.Empty() {
			continue
		}

		draw.Draw(canvas, box, fill, image.Point{}, draw.Over)
		for _, edge := range edges(box, a.style.StrokeWidth) {
			draw.Draw(canvas, edge, outline, image.Point{}, draw.Over)
		}
	}

	if clipped > 0 {
		a.log.Warn().
			Int("clipped", clipped).
			Int("width", bounds.Dx()).
			Int("height", bounds.Dy()).
			Msg("Some boxes extend past the image and were clipped")
	}

	if skipped > 0 {
		a.log.Warn().
			Int("skipped", skipped).
			Msg("Some spans have a negative or overflowing size and were not drawn")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode annotated png: %w", err)
	}
	return buf.Bytes(), nil
}

// Render writes the annotated PNG to path.
func (a *Annotator) Render(res *models.DecodedResult, path string) error {
	data, err := a.Annotate(res)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write annotated image: %w", err)
	}
	a.log.Debug().
		Str("output_file", path).
		Int("spans", len(res.Spans)).
		Int("bytes", len(data)).
		Msg("Annotated image written")
	return nil
}

// Save writes the decoded image bytes, unchanged, to path.
func Save(res *models.DecodedResult, path string) error {
	if err := os.WriteFile(path, res.Image, 0644); err != nil {
		return fmt.Errorf("write decoded image: %w", err)
	}
	return nil
}

// spanRect returns the rectangle a span describes. Spans with a negative
// size, or whose far edge overflows int, describe no rectangle.
func spanRect(span models.TextSpan) (image.Rectangle, bool) {
	if span.Width < 0 || span.Height < 0 {
		return image.Rectangle{}, false
	}
	if span.X > math.MaxInt-span.Width || span.Y > math.MaxInt-span.Height {
		return image.Rectangle{}, false
	}
	return image.Rect(span.X, span.Y, span.X+span.Width, span.Y+span.Height), true
}

// edges returns the four stroke bands lying inside r.
func edges(r image.Rectangle, width int) []image.Rectangle {
	if width <= 0 {
		return nil
	}
	return []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, min(r.Min.Y+width, r.Max.Y)),
		image.Rect(r.Min.X, max(r.Max.Y-width, r.Min.Y), r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, min(r.Min.X+width, r.Max.X), r.Max.Y),
		image.Rect(max(r.Max.X-width, r.Min.X), r.Min.Y, r.Max.X, r.Max.Y),
	}
}
