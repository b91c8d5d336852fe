package imaging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Source is an image input: either a path on disk or an in-memory buffer.
type Source struct {
	Path string
	Data []byte
}

// FromPath returns a Source that will be read from path.
func FromPath(path string) Source {
	return Source{Path: path}
}

// FromBytes returns a Source backed by data.
func FromBytes(data []byte) Source {
	return Source{Data: data}
}

// NewSource accepts a string path or a []byte buffer. Anything else fails with
// ErrInvalidInput before touching the filesystem.
func NewSource(v any) (Source, error) {
	switch in := v.(type) {
	case string:
		if strings.TrimSpace(in) == "" {
			return Source{}, wrap("NewSource", ErrInvalidInput, "empty path")
		}
		return FromPath(in), nil
	case []byte:
		return FromBytes(in), nil
	case Source:
		return in, nil
	default:
		return Source{}, wrap("NewSource", ErrInvalidInput, fmt.Sprintf("got %T", v))
	}
}

// Bytes returns the raw image payload, reading it from disk for path sources.
func (s Source) Bytes() ([]byte, error) {
	const op = "ReadSource"
	if s.Path == "" {
		if len(s.Data) == 0 {
			return nil, wrap(op, ErrEmptyImage, "")
		}
		return s.Data, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wrap(op, fmt.Errorf("%w: %w", ErrNotFound, err), s.Path)
		}
		return nil, wrap(op, err, s.Path)
	}
	if len(data) == 0 {
		return nil, wrap(op, ErrEmptyImage, s.Path)
	}
	return data, nil
}

// extensionFormat maps a recognised file extension to a format hint, or "".
func (s Source) extensionFormat() string {
	if s.Path == "" {
		return ""
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	}
	return ""
}
