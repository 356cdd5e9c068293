package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Native implements Codec using pure Go libraries.
// This avoids CGO dependency (libvips) for easier deployment.
type Native struct{}

func NewNative() *Native {
	return &Native{}
}

var nativeCapabilities = map[Format]Capabilities{
	JPEG: {Decode: true, Encode: true},
	PNG:  {Decode: true, Encode: true, Lossless: true},
	TIFF: {Decode: true, Encode: true, Lossless: true},
	GIF:  {Decode: true, Encode: true},
	BMP:  {Decode: true, Encode: true, Lossless: true},
	WebP: {Decode: true},
	AVIF: {},
}

func (n *Native) Capabilities(format Format) Capabilities {
	return nativeCapabilities[format]
}

func (n *Native) Decode(ctx context.Context, data []byte) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	format, ok := ParseFormat(name)
	if !ok {
		return nil, fmt.Errorf("unrecognized container %q", name)
	}

	bounds := img.Bounds()
	return &Image{
		Pixels:      img,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Format:      format,
		Orientation: readOrientation(format, data),
	}, nil
}

// readOrientation returns the EXIF orientation tag, or 1 when the container
// carries none or it cannot be parsed.
func readOrientation(format Format, data []byte) int {
	if format != JPEG && format != TIFF {
		return 1
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

func (n *Native) Encode(ctx context.Context, img image.Image, format Format, opts EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case JPEG:
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = 85
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case PNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
	case GIF:
		err = imaging.Encode(&buf, img, imaging.GIF)
	case BMP:
		err = imaging.Encode(&buf, img, imaging.BMP)
	case TIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Native) Extract(img image.Image, rect image.Rectangle) (image.Image, error) {
	bounds := img.Bounds()
	abs := rect.Add(bounds.Min)
	if rect.Empty() || !abs.In(bounds) {
		return nil, fmt.Errorf("extract %v outside image %dx%d", rect, bounds.Dx(), bounds.Dy())
	}
	return imaging.Crop(img, abs), nil
}

func (n *Native) Resample(img image.Image, width, height int, kernel Kernel) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resample to %dx%d", width, height)
	}
	return resize.Resize(uint(width), uint(height), img, interpolation(kernel)), nil
}

func interpolation(kernel Kernel) resize.InterpolationFunction {
	switch kernel {
	case Lanczos2:
		return resize.Lanczos2
	case Mitchell:
		return resize.MitchellNetravali
	case Cubic:
		return resize.Bicubic
	case Linear:
		return resize.Bilinear
	case Nearest:
		return resize.NearestNeighbor
	default:
		return resize.Lanczos3
	}
}

// ApplyOrientation turns an image stored with the given EXIF orientation
// upright. imaging rotates counter-clockwise.
func (n *Native) ApplyOrientation(img image.Image, orientation int) (image.Image, error) {
	switch orientation {
	case 0, 1:
		return img, nil
	case 2:
		return imaging.FlipH(img), nil
	case 3:
		return imaging.Rotate180(img), nil
	case 4:
		return imaging.FlipV(img), nil
	case 5:
		return imaging.Transpose(img), nil
	case 6:
		return imaging.Rotate270(img), nil
	case 7:
		return imaging.Transverse(img), nil
	case 8:
		return imaging.Rotate90(img), nil
	default:
		return nil, fmt.Errorf("invalid orientation %d", orientation)
	}
}

var _ Codec = (*Native)(nil)
