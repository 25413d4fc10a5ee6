package icons

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is the upload size limit for a single icon (5 MiB).
const DefaultMaxBytes int64 = 5 << 20

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("only image files are allowed")
	ErrInvalidImage    = errors.New("invalid image data")
	ErrInvalidName     = errors.New("invalid icon name")
)

// Kind is how an upload is stored.
type Kind int

const (
	KindUnsupported Kind = iota
	// KindVector files are stored byte for byte.
	KindVector
	// KindRaster files are decoded and normalized to PNG.
	KindRaster
)

var extKinds = map[string]Kind{
	".svg":  KindVector,
	".png":  KindRaster,
	".jpg":  KindRaster,
	".jpeg": KindRaster,
	".gif":  KindRaster,
	".webp": KindRaster,
}

// mediaTokens are the accepted subtypes of a declared image media type.
var mediaTokens = []string{"jpeg", "jpg", "png", "gif", "webp", "svg"}

// KindOf classifies a file by its lowercased extension.
func KindOf(filename string) Kind {
	return extKinds[strings.ToLower(filepath.Ext(filename))]
}

// Validate checks an upload before any byte of it is read or written:
// size within maxBytes, an allowed extension and, when the client declared
// one, an allowed image media type.
func Validate(filename, declaredType string, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if size > maxBytes {
		return fmt.Errorf("%w: maximum size is %dMB", ErrTooLarge, maxBytes>>20)
	}
	if KindOf(filename) == KindUnsupported {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filename))
	}

	declaredType = strings.ToLower(strings.TrimSpace(declaredType))
	if declaredType == "" {
		return nil
	}
	if !strings.HasPrefix(declaredType, "image/") {
		return fmt.Errorf("%w: declared type %q", ErrUnsupportedType, declaredType)
	}
	for _, token := range mediaTokens {
		if strings.Contains(declaredType, token) {
			return nil
		}
	}
	return fmt.Errorf("%w: declared type %q", ErrUnsupportedType, declaredType)
}

// checkContent sniffs raster bytes; vector markup is trusted to its extension.
func checkContent(kind Kind, data []byte) error {
	if kind != KindRaster {
		return nil
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return fmt.Errorf("%w: content looks like %s", ErrInvalidImage, detected.String())
	}
	return nil
}

// IsValidationError reports whether err is caused by the upload itself rather than storage.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrInvalidImage) ||
		errors.Is(err, ErrInvalidName)
}

// UserMessage returns the client-facing text for an upload validation error.
func UserMessage(err error, maxBytes int64) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	switch {
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf("File too large. Maximum size is %dMB.", maxBytes>>20)
	case errors.Is(err, ErrInvalidImage):
		return "Invalid image file."
	default:
		return "Only image files are allowed."
	}
}
