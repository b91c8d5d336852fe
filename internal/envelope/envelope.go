// Package envelope serializes images and text spans into the Base64Plus JSON
// document and back.
//
// An envelope is a single JSON object:
//
//	{"image": "<standard base64>", "text_data": [...spans], "format": "png"}
//
// Decode requires image and text_data, defaults a missing format to png and
// does not check that the image bytes match the declared format.
package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"base64plus/pkg/models"
)

// Encode builds the envelope JSON for data, format and spans.
func Encode(data []byte, format string, spans []models.TextSpan) (string, error) {
	if spans == nil {
		spans = []models.TextSpan{}
	}
	env := models.Envelope{
		Image:    base64.StdEncoding.EncodeToString(data),
		TextData: spans,
		Format:   models.CanonicalFormat(format),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return "", fmt.Errorf("envelope: encode: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Decode parses an envelope. Spans are decoded structurally; their values are
// not range-checked (see DecodeStrict).
func Decode(s string) (*models.DecodedResult, error) {
	return decode("Decode", s)
}

// DecodeStrict is Decode plus per-span validation: non-empty text,
// non-negative box and confidence within [0, 1].
func DecodeStrict(s string) (*models.DecodedResult, error) {
	const op = "DecodeStrict"

	res, err := decode(op, s)
	if err != nil {
		return nil, err
	}
	for i, span := range res.Spans {
		if err := ValidateSpan(span); err != nil {
			return nil, newDecodeError(op, ErrSchema, fmt.Sprintf("text_data[%d]: %v", i, err))
		}
	}
	return res, nil
}

// ValidateSpan checks the invariants of a single span.
func ValidateSpan(span models.TextSpan) error {
	switch {
	case span.Text == "":
		return fmt.Errorf("text is empty")
	case span.X < 0 || span.Y < 0:
		return fmt.Errorf("negative origin (%d, %d)", span.X, span.Y)
	case span.Width < 0 || span.Height < 0:
		return fmt.Errorf("negative size %dx%d", span.Width, span.Height)
	case span.Confidence != nil && (*span.Confidence < 0 || *span.Confidence > 1):
		return fmt.Errorf("confidence %v outside [0, 1]", *span.Confidence)
	}
	return nil
}

func decode(op, s string) (*models.DecodedResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, newDecodeError(op, ErrParse, err.Error())
	}
	if fields == nil {
		// the literal null
		return nil, newDecodeError(op, ErrParse, "expected a JSON object")
	}

	rawImage, ok := present(fields, "image")
	if !ok {
		return nil, newDecodeError(op, ErrSchema, "missing required field: image")
	}
	rawSpans, ok := present(fields, "text_data")
	if !ok {
		return nil, newDecodeError(op, ErrSchema, "missing required field: text_data")
	}

	var encoded string
	if err := json.Unmarshal(rawImage, &encoded); err != nil {
		return nil, newDecodeError(op, ErrSchema, "image must be a string")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, newDecodeError(op, ErrSchema, fmt.Sprintf("image is not valid base64: %v", err))
	}

	var spans []models.TextSpan
	if err := json.Unmarshal(rawSpans, &spans); err != nil {
		return nil, newDecodeError(op, ErrSchema, fmt.Sprintf("text_data: %v", err))
	}
	if spans == nil {
		spans = []models.TextSpan{}
	}

	format := models.FormatPNG
	if rawFormat, ok := present(fields, "format"); ok {
		var f string
		if err := json.Unmarshal(rawFormat, &f); err != nil {
			return nil, newDecodeError(op, ErrSchema, "format must be a string")
		}
		format = models.CanonicalFormat(f)
	}

	return &models.DecodedResult{
		Image:  data,
		Spans:  spans,
		Format: format,
	}, nil
}

// present reports whether key exists with a non-null value.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}
