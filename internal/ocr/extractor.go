package ocr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"base64plus/internal/logger"
	"base64plus/pkg/models"
)

// DefaultMinConfidence is the normalized confidence below which words are
// treated as recognition noise and dropped.
const DefaultMinConfidence = 0.10

// Options controls a single extraction call.
type Options struct {
	// IncludeConfidence keeps the confidence attribute on each span.
	IncludeConfidence bool
}

// Extractor converts engine output into canonical text spans.
type Extractor struct {
	engine        Engine
	minConfidence float64
	log           zerolog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMinConfidence overrides the low-confidence threshold.
func WithMinConfidence(threshold float64) ExtractorOption {
	return func(e *Extractor) { e.minConfidence = threshold }
}

// WithLogger sets the extractor's logger.
func WithLogger(l zerolog.Logger) ExtractorOption {
	return func(e *Extractor) { e.log = l }
}

// NewExtractor builds an Extractor around engine. A nil engine is accepted; every
// Extract call then fails with ErrDependency.
func NewExtractor(engine Engine, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		engine:        engine,
		minConfidence: DefaultMinConfidence,
		log:           logger.WithComponent("ocr"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the configured engine, or nil.
func (e *Extractor) Engine() Engine {
	return e.engine
}

// Extract runs recognition once on image and returns the surviving spans in
// engine emission order.
func (e *Extractor) Extract(ctx context.Context, image []byte, opts Options) ([]models.TextSpan, error) {
	return e.ExtractWithLogger(ctx, image, opts, e.log)
}

// ExtractWithLogger is Extract with a per-call logger (for request ids).
func (e *Extractor) ExtractWithLogger(ctx context.Context, image []byte, opts Options, log zerolog.Logger) ([]models.TextSpan, error) {
	const op = "Extract"

	if e.engine == nil {
		return nil, NewOCRError(op, ErrDependency, "no engine configured")
	}

	var words []Word
	err := withSession(ctx, e.engine, log, func(s Session) error {
		var recErr error
		words, recErr = s.Recognize(ctx, image)
		return recErr
	})
	if err != nil {
		var ocrErr *OCRError
		if !errors.As(err, &ocrErr) {
			err = fmt.Errorf("%w: %w", ErrOCRFailed, err)
		}
		return nil, wrapEngineError(op, e.engine.Name(), err, "recognition failed")
	}

	spans := make([]models.TextSpan, 0, len(words))
	dropped := 0
	for _, w := range words {
		span, ok := e.toSpan(w, opts.IncludeConfidence)
		if !ok {
			dropped++
			log.Debug().
				Str("text", w.Text).
				Float64("confidence", w.Confidence).
				Msg("Dropping low-quality word")
			continue
		}
		spans = append(spans, span)
	}

	log.Debug().
		Str("engine", e.engine.Name()).
		Int("words", len(words)).
		Int("spans", len(spans)).
		Int("dropped", dropped).
		Msg("Text extraction completed")

	return spans, nil
}

func (e *Extractor) toSpan(w Word, includeConfidence bool) (models.TextSpan, bool) {
	if strings.TrimSpace(w.Text) == "" || w.Confidence < e.minConfidence {
		return models.TextSpan{}, false
	}

	// Edges are clamped to the image origin before the size is derived, so
	// the right and bottom edges stay where the engine put them.
	x0, y0 := max(roundCoord(w.Box.X0), 0), max(roundCoord(w.Box.Y0), 0)
	x1, y1 := max(roundCoord(w.Box.X1), 0), max(roundCoord(w.Box.Y1), 0)

	span := models.TextSpan{
		Text:   w.Text,
		X:      x0,
		Y:      y0,
		Width:  max(x1-x0, 0),
		Height: max(y1-y0, 0),
	}
	if includeConfidence {
		span.Confidence = models.Float64(math.Min(math.Max(w.Confidence, 0), 1))
	}
	return span, true
}

// roundCoord rounds once per edge; width and height are derived from the rounded
// edges so the box never drifts by a compounded rounding error.
func roundCoord(v float64) int {
	return int(math.Round(v))
}

// withSession acquires a session from engine, runs fn and always closes the session.
func withSession(ctx context.Context, engine Engine, log zerolog.Logger, fn func(Session) error) error {
	session, err := engine.NewSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warn().
				Err(closeErr).
				Str("engine", engine.Name()).
				Msg("Failed to close OCR session")
		}
	}()
	return fn(session)
}
