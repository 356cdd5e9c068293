// Package codec defines the pixel capability the pipeline relies on: decode,
// encode, extract, resample and orientation. Native is a pure Go
// implementation; other backends only need to satisfy Codec.
package codec

import (
	"context"
	"errors"
	"image"
	"strings"
)

// ErrUnsupportedFormat is returned by Encode for formats the backend cannot write.
var ErrUnsupportedFormat = errors.New("format not supported by codec")

// Format identifies an image container format.
type Format string

const (
	JPEG Format = "jpg"
	PNG  Format = "png"
	WebP Format = "webp"
	AVIF Format = "avif"
	TIFF Format = "tiff"
	GIF  Format = "gif"
	BMP  Format = "bmp"
)

// ParseFormat normalizes a format name. Aliases such as "jpeg" and "tif"
// are accepted.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return JPEG, true
	case "png":
		return PNG, true
	case "webp":
		return WebP, true
	case "avif":
		return AVIF, true
	case "tiff", "tif":
		return TIFF, true
	case "gif":
		return GIF, true
	case "bmp":
		return BMP, true
	default:
		return "", false
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

func (f Format) String() string {
	return string(f)
}

// Kernel selects the resampling filter.
type Kernel string

const (
	Lanczos3 Kernel = "lanczos3"
	Lanczos2 Kernel = "lanczos2"
	Mitchell Kernel = "mitchell"
	Cubic    Kernel = "cubic"
	Linear   Kernel = "linear"
	Nearest  Kernel = "nearest"

	// DefaultKernel is the best quality windowed-sinc filter.
	DefaultKernel = Lanczos3
)

// Valid reports whether k names a known kernel.
func (k Kernel) Valid() bool {
	switch k {
	case Lanczos3, Lanczos2, Mitchell, Cubic, Linear, Nearest:
		return true
	}
	return false
}

// Image is a decoded raster plus what the container said about it.
type Image struct {
	Pixels      image.Image
	Width       int
	Height      int
	Format      Format
	Orientation int // EXIF orientation, 1..8; 1 when absent
}

// EncodeOptions carries format-specific encoding parameters.
type EncodeOptions struct {
	Quality           int // 1-100
	Lossless          bool
	Progressive       bool
	ChromaSubsampling string // "4:2:0" or "4:4:4"
	CQLevel           int    // AVIF constant quality
	Speed             int    // AVIF effort
	StripMetadata     bool
}

// Capabilities describes what a backend can do with a format.
type Capabilities struct {
	Decode           bool
	Encode           bool
	Lossless         bool // encode output is always lossless
	LosslessOption   bool // Lossless in EncodeOptions is honored
	Progressive      bool
	Chroma444        bool
	PreserveMetadata bool
}

// Codec is the capability the executor delegates pixel work to.
type Codec interface {
	Decode(ctx context.Context, data []byte) (*Image, error)
	Encode(ctx context.Context, img image.Image, format Format, opts EncodeOptions) ([]byte, error)
	Extract(img image.Image, rect image.Rectangle) (image.Image, error)
	Resample(img image.Image, width, height int, kernel Kernel) (image.Image, error)
	ApplyOrientation(img image.Image, orientation int) (image.Image, error)
	Capabilities(format Format) Capabilities
}
