package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/leeforge/imgpipe/media/codec"
)

// fakeCodec tracks sizes only. Encoded bytes are "<format>:<w>x<h>".
type fakeCodec struct {
	mu    sync.Mutex
	calls []string

	caps        map[codec.Format]codec.Capabilities
	orientation int
	extractErr  error
	// onDecode runs after a successful decode.
	onDecode func()
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{caps: map[codec.Format]codec.Capabilities{
		codec.JPEG: {Decode: true, Encode: true},
		codec.PNG:  {Decode: true, Encode: true, Lossless: true},
		codec.WebP: {Decode: true},
		codec.AVIF: {},
	}}
}

func (f *fakeCodec) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeCodec) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeInput encodes a decode request understood by fakeCodec.Decode.
func fakeInput(format codec.Format, w, h int) []byte {
	return []byte(fmt.Sprintf("%s:%dx%d", format, w, h))
}

func (f *fakeCodec) Decode(_ context.Context, data []byte) (*codec.Image, error) {
	var (
		name string
		w, h int
	)
	if i := strings.IndexByte(string(data), ':'); i > 0 {
		name = string(data[:i])
		if _, err := fmt.Sscanf(string(data[i+1:]), "%dx%d", &w, &h); err != nil {
			return nil, err
		}
	}
	format, ok := codec.ParseFormat(name)
	if !ok || w <= 0 || h <= 0 {
		return nil, errors.New("not an image")
	}
	f.record("decode %dx%d", w, h)
	if f.onDecode != nil {
		f.onDecode()
	}
	return &codec.Image{
		Pixels:      image.NewNRGBA(image.Rect(0, 0, w, h)),
		Width:       w,
		Height:      h,
		Format:      format,
		Orientation: f.orientation,
	}, nil
}

func (f *fakeCodec) Encode(ctx context.Context, img image.Image, format codec.Format, opts codec.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !f.caps[format].Encode {
		return nil, fmt.Errorf("%w: %s", codec.ErrUnsupportedFormat, format)
	}
	b := img.Bounds()
	f.record("encode %s q=%d lossless=%t", format, opts.Quality, opts.Lossless)
	return []byte(fmt.Sprintf("%s:%dx%d", format, b.Dx(), b.Dy())), nil
}

func (f *fakeCodec) Extract(img image.Image, rect image.Rectangle) (image.Image, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	if !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("rect %v outside %v", rect, img.Bounds())
	}
	f.record("extract %v", rect)
	return image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy())), nil
}

func (f *fakeCodec) Resample(_ image.Image, w, h int, kernel codec.Kernel) (image.Image, error) {
	f.record("resample %dx%d %s", w, h, kernel)
	return image.NewNRGBA(image.Rect(0, 0, w, h)), nil
}

func (f *fakeCodec) ApplyOrientation(img image.Image, orientation int) (image.Image, error) {
	f.record("orient %d", orientation)
	b := img.Bounds()
	if orientation >= 5 {
		return image.NewNRGBA(image.Rect(0, 0, b.Dy(), b.Dx())), nil
	}
	return image.NewNRGBA(b), nil
}

func (f *fakeCodec) Capabilities(format codec.Format) codec.Capabilities {
	return f.caps[format]
}

var _ codec.Codec = (*fakeCodec)(nil)
