// Package tesseract provides the local OCR engine backed by the Tesseract C API
// through gosseract. Importing it registers the "tesseract" engine (also used
// for "auto").
//
// Requires libtesseract and its headers at build time. On Ubuntu/Debian:
//
//	apt-get install libtesseract-dev tesseract-ocr-eng
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"base64plus/internal/ocr"
)

func init() {
	ocr.Register(ocr.EngineTesseract, func(cfg ocr.EngineConfig) (ocr.Engine, error) {
		return NewEngine(cfg.Languages...), nil
	})
}

// Engine implements ocr.Engine. Every session owns a fresh gosseract client.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewEngine constructs a Tesseract engine. No languages means Tesseract's default (eng).
func NewEngine(languages ...string) *Engine {
	return &Engine{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Name() string { return ocr.EngineTesseract }

func (e *Engine) NewSession(ctx context.Context) (ocr.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := e.clientFactory()
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			c.Close()
			return nil, ocr.WrapOCRError("NewSession", fmt.Errorf("%w: %v", ocr.ErrDependency, err), "set languages")
		}
	}
	return &session{client: c}, nil
}

type session struct {
	client *gosseract.Client
}

func (s *session) Recognize(ctx context.Context, image []byte) ([]ocr.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.client.SetImageFromBytes(image); err != nil {
		return nil, ocr.WrapOCRError("Recognize", fmt.Errorf("%w: %v", ocr.ErrOCRFailed, err), "set image")
	}
	boxes, err := s.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// gosseract initializes lazily; a missing tessdata install surfaces here.
		if strings.Contains(err.Error(), "initialize TessBaseAPI") {
			return nil, ocr.WrapOCRError("Recognize", fmt.Errorf("%w: %v", ocr.ErrDependency, err), "tesseract is not initialized")
		}
		return nil, ocr.WrapOCRError("Recognize", fmt.Errorf("%w: %v", ocr.ErrOCRFailed, err), "word boxes")
	}

	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.Word{
			Text: b.Word,
			Box: ocr.Box{
				X0: float64(b.Box.Min.X),
				Y0: float64(b.Box.Min.Y),
				X1: float64(b.Box.Max.X),
				Y1: float64(b.Box.Max.Y),
			},
			// Tesseract reports 0-100.
			Confidence: b.Confidence / 100.0,
		})
	}
	return words, nil
}

func (s *session) Close() error {
	return s.client.Close()
}
