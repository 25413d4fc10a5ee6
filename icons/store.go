package icons

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// DefaultSize is the edge length of normalized raster icons.
const DefaultSize = 64

// Extensions of stored files.
const (
	VectorExt = ".svg"
	RasterExt = ".png"
)

// Store keeps content-addressed icon files in a single directory.
// A file is named <sha256 of the uploaded bytes><ext>, so identical uploads
// always land on the same name and are written once.
type Store struct {
	dir   string
	size  int
	group singleflight.Group
}

// NewStore returns an icon store rooted at dir producing size×size raster icons.
func NewStore(dir string, size int) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{dir: dir, size: size}
}

// Dir returns the uploads directory.
func (s *Store) Dir() string { return s.dir }

// Init creates the uploads directory and verifies it is writable.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create uploads directory %s: %w", s.dir, err)
	}
	probe, err := os.CreateTemp(s.dir, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("uploads directory %s is not writable: %w", s.dir, err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	return nil
}

// NameFor returns the stored file name for data uploaded as originalName.
func NameFor(data []byte, originalName string) (string, error) {
	var ext string
	switch KindOf(originalName) {
	case KindVector:
		ext = VectorExt
	case KindRaster:
		ext = RasterExt
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(originalName))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + ext, nil
}

// Save stores data and returns the file name (no directory component).
// Vector images are written verbatim; raster images are decoded, scaled to fit
// the icon square without cropping, padded with transparency and encoded as PNG.
// An existing file with the same name is reused as is.
func (s *Store) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := NameFor(data, originalName)
	if err != nil {
		return "", err
	}
	kind := KindOf(originalName)
	if err := checkContent(kind, data); err != nil {
		return "", err
	}

	_, err, _ = s.group.Do(name, func() (interface{}, error) {
		target := filepath.Join(s.dir, name)
		if _, statErr := os.Stat(target); statErr == nil {
			return nil, nil
		}

		payload := data
		if kind == KindRaster {
			normalized, err := Normalize(data, s.size)
			if err != nil {
				return nil, err
			}
			payload = normalized
		}

		if err := writeFileAtomic(s.dir, target, payload); err != nil {
			return nil, err
		}
		log.Printf("Stored icon %s (%d bytes)", name, len(payload))
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// Normalize decodes a raster image and returns a size×size PNG with the image
// scaled to fit ("contain") and centered on a fully transparent canvas.
func Normalize(data []byte, size int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	dw := clampEdge(int(math.Round(float64(w)*scale)), size)
	dh := clampEdge(int(math.Round(float64(h)*scale)), size)
	x0 := (size - dw) / 2
	y0 := (size - dh) / 2

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+dw, y0+dh), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

func clampEdge(v, size int) int {
	if v < 1 {
		return 1
	}
	if v > size {
		return size
	}
	return v
}

func writeFileAtomic(dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".icon-*")
	if err != nil {
		return fmt.Errorf("failed to create temp icon: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write icon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close icon: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod icon: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to store icon: %w", err)
	}
	return nil
}

// Path resolves a stored name inside the uploads directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Remove deletes a stored icon. A file that is already gone is not an error.
func (s *Store) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove icon %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a stored icon is on disk.
func (s *Store) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
