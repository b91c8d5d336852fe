// Package imaging turns heterogeneous image inputs into a byte payload plus a
// canonical format label ("png" or "jpeg").
//
// Format resolution order:
//   - the explicitly requested format
//   - the input path's extension (.jpg, .jpeg, .png)
//   - the format embedded in the image itself (needs a Codec)
//   - "png"
//
// When the Normalizer has a Codec, the payload is re-encoded into the resolved
// format. Without one, bytes pass through untouched and the label is trusted.
package imaging

import (
	"strings"

	"github.com/rs/zerolog"

	"base64plus/internal/logger"
	"base64plus/pkg/models"
)

// Normalizer resolves the output format of an image and optionally re-encodes it.
type Normalizer struct {
	codec Codec
	log   zerolog.Logger
}

// NewNormalizer creates a Normalizer. A nil codec selects pass-through mode.
func NewNormalizer(codec Codec) *Normalizer {
	return &Normalizer{
		codec: codec,
		log:   logger.WithComponent("normalizer"),
	}
}

// WithLogger replaces the normalizer's logger.
func (n *Normalizer) WithLogger(l zerolog.Logger) *Normalizer {
	n.log = l
	return n
}

// Reencodes reports whether the normalizer guarantees the output format.
func (n *Normalizer) Reencodes() bool {
	return n.codec != nil
}

// Normalize reads src and returns the payload together with its canonical format.
func (n *Normalizer) Normalize(src Source, requestedFormat string) ([]byte, string, error) {
	const op = "Normalize"

	data, err := src.Bytes()
	if err != nil {
		return nil, "", err
	}

	format := n.resolveFormat(src, data, requestedFormat)

	if n.codec == nil {
		n.log.Debug().
			Str("format", format).
			Int("bytes", len(data)).
			Msg("No image codec configured, passing bytes through")
		return data, format, nil
	}

	out, err := n.codec.Reencode(data, format)
	if err != nil {
		return nil, "", wrap(op, ErrReencodeFailed, err.Error())
	}

	n.log.Debug().
		Str("format", format).
		Int("input_bytes", len(data)).
		Int("output_bytes", len(out)).
		Msg("Image re-encoded")

	return out, format, nil
}

func (n *Normalizer) resolveFormat(src Source, data []byte, requested string) string {
	if requested = strings.TrimSpace(requested); requested != "" {
		return models.CanonicalFormat(requested)
	}
	if hint := src.extensionFormat(); hint != "" {
		return hint
	}
	if n.codec != nil {
		if meta, err := n.codec.Metadata(data); err == nil {
			return models.CanonicalFormat(meta.Format)
		}
	}
	return models.FormatPNG
}
