// Package base64plus encodes images into self-describing Base64Plus envelopes
// (image + recognized text spans + format) and decodes, saves and renders them.
//
// Basic use:
//
//	client := base64plus.New(base64plus.DefaultConfig(engine))
//	env, err := client.Encode(ctx, "scan.jpg", base64plus.DefaultEncodeOptions())
//	res, err := client.Decode(env)
//	err = client.Render(res, "scan.annotated.png")
//
// Every Encode call opens its own OCR session, so a Client is safe for
// concurrent use across independent images.
package base64plus

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"base64plus/internal/annotate"
	"base64plus/internal/envelope"
	"base64plus/internal/imaging"
	"base64plus/internal/logger"
	"base64plus/internal/ocr"
	"base64plus/pkg/models"
)

// Errors surfaced by the Client. Match them with errors.Is.
var (
	ErrDependency   = ocr.ErrDependency
	ErrNotFound     = imaging.ErrNotFound
	ErrInvalidInput = imaging.ErrInvalidInput
	ErrParse        = envelope.ErrParse
	ErrSchema       = envelope.ErrSchema
	ErrImageDecode  = annotate.ErrImageDecode
)

// Service defines the Base64Plus operations.
type Service interface {
	// Encode normalizes input (a path string or []byte), extracts text spans and
	// returns the envelope JSON.
	Encode(ctx context.Context, input any, opts EncodeOptions) (string, error)

	// Decode parses an envelope back into image bytes, spans and format.
	Decode(envelope string) (*models.DecodedResult, error)

	// Save writes the decoded image bytes to path.
	Save(res *models.DecodedResult, path string) error

	// Render writes a PNG of the image with span boxes drawn over it.
	Render(res *models.DecodedResult, path string) error
}

// EncodeOptions controls a single Encode call.
type EncodeOptions struct {
	// IncludeConfidence keeps per-span confidence scores.
	IncludeConfidence bool

	// ImageFormat forces the output format ("png", "jpeg" or "jpg"). Empty
	// derives it from the path extension or the image itself.
	ImageFormat string
}

// DefaultEncodeOptions returns options with confidence reporting enabled.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{IncludeConfidence: true}
}

// NoConfidenceFilter as Config.MinConfidence keeps every recognized word.
const NoConfidenceFilter = -1

// Config wires the capabilities a Client uses. Zero fields fall back to the
// defaults of DefaultConfig, except Codec: a nil Codec is pass-through mode.
type Config struct {
	// Engine is the OCR capability. Nil makes Encode fail with ErrDependency.
	Engine ocr.Engine

	// Codec re-encodes images into the resolved format. Nil passes bytes
	// through untouched and trusts the format label, so a path named .jpg
	// holding PNG bytes is labeled jpeg. Use DefaultConfig or
	// imaging.NewRasterCodec to guarantee the payload matches its format.
	Codec imaging.Codec

	// MinConfidence drops spans whose normalized confidence is below it.
	// Zero selects ocr.DefaultMinConfidence; NoConfidenceFilter disables the filter.
	MinConfidence float64

	// Style is the overlay used by Render. The zero Style selects
	// annotate.DefaultStyle.
	Style annotate.Style

	// StrictDecode validates every span on Decode.
	StrictDecode bool

	// Logger overrides the default component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a Config with the standard raster codec, the default
// confidence threshold and the default overlay style.
func DefaultConfig(engine ocr.Engine) Config {
	return Config{
		Engine:        engine,
		Codec:         imaging.NewRasterCodec(imaging.DefaultJPEGQuality),
		MinConfidence: ocr.DefaultMinConfidence,
		Style:         annotate.DefaultStyle(),
	}
}

// Client implements Service.
type Client struct {
	normalizer *imaging.Normalizer
	extractor  *ocr.Extractor
	annotator  *annotate.Annotator
	strict     bool
	log        zerolog.Logger
}

var _ Service = (*Client)(nil)

// New builds a Client from cfg.
func New(cfg Config) *Client {
	log := logger.WithComponent("base64plus")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = ocr.DefaultMinConfidence
	}
	if cfg.Style == (annotate.Style{}) {
		cfg.Style = annotate.DefaultStyle()
	}
	return &Client{
		normalizer: imaging.NewNormalizer(cfg.Codec).WithLogger(log),
		extractor:  ocr.NewExtractor(cfg.Engine, ocr.WithMinConfidence(cfg.MinConfidence), ocr.WithLogger(log)),
		annotator:  annotate.New(cfg.Style).WithLogger(log),
		strict:     cfg.StrictDecode,
		log:        log,
	}
}

func (c *Client) Encode(ctx context.Context, input any, opts EncodeOptions) (string, error) {
	start := time.Now()
	log := logger.WithRequestID(c.log, logger.NewRequestID())

	src, err := imaging.NewSource(input)
	if err != nil {
		return "", err
	}
	if c.extractor.Engine() == nil {
		return "", ocr.NewOCRError("Encode", ocr.ErrDependency, "no OCR engine configured")
	}

	data, format, err := c.normalizer.Normalize(src, opts.ImageFormat)
	if err != nil {
		return "", err
	}

	spans, err := c.extractor.ExtractWithLogger(ctx, data, ocr.Options{IncludeConfidence: opts.IncludeConfidence}, log)
	if err != nil {
		return "", err
	}

	out, err := envelope.Encode(data, format, spans)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("source", sourceLabel(src)).
		Str("format", format).
		Int("image_bytes", len(data)).
		Int("spans", len(spans)).
		Bool("reencoded", c.normalizer.Reencodes()).
		Dur("duration", time.Since(start)).
		Msg("Image encoded")

	return out, nil
}

func (c *Client) Decode(s string) (*models.DecodedResult, error) {
	if c.strict {
		return envelope.DecodeStrict(s)
	}
	return envelope.Decode(s)
}

func (c *Client) Save(res *models.DecodedResult, path string) error {
	return annotate.Save(res, path)
}

func (c *Client) Render(res *models.DecodedResult, path string) error {
	return c.annotator.Render(res, path)
}

// Annotate returns the rendered overlay as PNG bytes without writing a file.
func (c *Client) Annotate(res *models.DecodedResult) ([]byte, error) {
	return c.annotator.Annotate(res)
}

// DecodeFile reads and decodes an envelope file.
func (c *Client) DecodeFile(path string) (*models.DecodedResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &imaging.ImageError{Op: "DecodeFile", Err: imaging.ErrNotFound, Details: path}
		}
		return nil, err
	}
	return c.Decode(string(data))
}

func sourceLabel(src imaging.Source) string {
	if src.Path != "" {
		return src.Path
	}
	return "<bytes>"
}
