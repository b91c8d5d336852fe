// Package ocr wraps pluggable text-recognition engines and converts their
// word-level output into Base64Plus text spans.
//
// Engines are created once and hand out short-lived sessions. A session owns
// whatever stateful worker the engine needs (a Tesseract handle, a gRPC client)
// and is closed after every recognition call, on success and on failure.
//
// Available engines:
//   - tesseract: local Tesseract through gosseract (cgo, needs libtesseract)
//   - vision: Google Cloud Vision DOCUMENT_TEXT_DETECTION
//   - documentai: Google Document AI OCR processor
//
// Cloud engines read credentials the same way:
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string, OR
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - Application Default Credentials
package ocr

import (
	"context"
)

// Box is an axis-aligned rectangle in image pixels as reported by an engine.
// Coordinates may be fractional.
type Box struct {
	X0, Y0 float64 // top-left
	X1, Y1 float64 // bottom-right
}

// Word is one recognized unit as reported by an engine.
type Word struct {
	Text string
	Box  Box

	// Confidence is normalized to 0.0-1.0 by the engine.
	Confidence float64
}

// Engine is a recognition backend.
type Engine interface {
	// Name identifies the engine in logs and errors.
	Name() string

	// NewSession acquires a worker for a single recognition call. The caller
	// must Close the session.
	NewSession(ctx context.Context) (Session, error)
}

// Session runs recognition on one image.
type Session interface {
	// Recognize returns the words found in the encoded image, in emission order.
	Recognize(ctx context.Context, image []byte) ([]Word, error)

	// Close releases the worker.
	Close() error
}
