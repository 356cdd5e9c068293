package processor

import (
	"image"

	"github.com/leeforge/imgpipe/media/codec"
)

// Handle owns one decoded pixel buffer. Each pixel-changing step consumes
// the current handle and returns the next; a consumed handle is empty.
type Handle struct {
	pixels      image.Image
	source      codec.Format
	orientation int
}

func newHandle(img *codec.Image) *Handle {
	orientation := img.Orientation
	if orientation < 1 || orientation > 8 {
		orientation = 1
	}
	return &Handle{pixels: img.Pixels, source: img.Format, orientation: orientation}
}

// Width is read from the pixel buffer itself.
func (h *Handle) Width() int {
	if h == nil || h.pixels == nil {
		return 0
	}
	return h.pixels.Bounds().Dx()
}

func (h *Handle) Height() int {
	if h == nil || h.pixels == nil {
		return 0
	}
	return h.pixels.Bounds().Dy()
}

func (h *Handle) Pixels() image.Image {
	return h.pixels
}

// Source is the container format the image was decoded from.
func (h *Handle) Source() codec.Format {
	return h.source
}

// Orientation is the EXIF orientation still to be applied; 1 means upright.
func (h *Handle) Orientation() int {
	return h.orientation
}

// Released reports whether the buffer has been dropped or handed on.
func (h *Handle) Released() bool {
	return h == nil || h.pixels == nil
}

// Release drops the pixel buffer. It is safe to call more than once.
func (h *Handle) Release() {
	if h != nil {
		h.pixels = nil
	}
}

// next hands ownership of the metadata to a new handle wrapping pixels and
// releases h.
func (h *Handle) next(pixels image.Image) *Handle {
	n := &Handle{pixels: pixels, source: h.source, orientation: h.orientation}
	h.Release()
	return n
}
