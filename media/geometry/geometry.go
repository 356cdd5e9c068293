// Package geometry turns crop and resize operations into concrete pixel
// rectangles and target sizes for the current image dimensions. It is pure
// arithmetic; no pixels are touched here.
package geometry

import (
	"fmt"
	"image"
	"math"

	apperrors "github.com/leeforge/imgpipe/errors"
	"github.com/leeforge/imgpipe/media/pipeline"
)

// Rect is a region in pixel coordinates of the current image.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.Left, r.Top)
}

// Size is a width and height pair.
type Size struct {
	Width  int
	Height int
}

// Plan is the result of resolving a resize. The image is resampled to Scale
// and, when Crop is set, the crop rectangle is extracted from the scaled image.
// Width and Height are the final dimensions.
type Plan struct {
	Width  int
	Height int
	Scale  Size
	Crop   *Rect
	// NoOp is set when the output equals the input dimensions.
	NoOp bool
}

func invalidCrop(format string, args ...any) error {
	return apperrors.NewInvalidOperation(string(pipeline.KindCrop), fmt.Sprintf(format, args...))
}

func invalidResize(format string, args ...any) error {
	return apperrors.NewInvalidOperation(string(pipeline.KindResize), fmt.Sprintf(format, args...))
}

func scaled(v, num, den int) int {
	return max(int(math.Round(float64(v)*float64(num)/float64(den))), 1)
}
