package models

import "strings"

// Canonical image formats carried by an envelope.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// FileExtension is the conventional extension for persisted envelopes.
const FileExtension = ".b64p"

type TextSpan struct {
	// Text is the recognized content. Never empty when produced by the extractor.
	Text string `json:"text"`

	// Bounding box, top-left origin, in source image pixels.
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// Confidence is the normalized score (0.0-1.0). Nil when confidence reporting
	// is disabled; the key is then omitted from the serialized span.
	Confidence *float64 `json:"confidence,omitempty"`
}

// Envelope is the wire form of a Base64Plus document.
type Envelope struct {
	Image    string     `json:"image"`     // standard Base64 of the raster bytes
	TextData []TextSpan `json:"text_data"` // engine emission order
	Format   string     `json:"format"`    // "png" or "jpeg"
}

// DecodedResult is an envelope with its image payload decoded back to raw bytes.
type DecodedResult struct {
	Image  []byte
	Spans  []TextSpan
	Format string
}

// CanonicalFormat lower-cases a format name and maps "jpg" to "jpeg". Anything
// other than png or jpeg becomes png.
func CanonicalFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpg", "jpeg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

// Float64 returns a pointer to v. Handy for building spans with a confidence.
func Float64(v float64) *float64 {
	return &v
}
