package geometry

import (
	"math"

	"github.com/leeforge/imgpipe/media/pipeline"
)

// CropRect resolves op against a width x height image. Schemes are tried in
// order: explicit rectangle, gravity with a target size, edge with a percent,
// edge with a pixel count. The kept region is never smaller than 1x1.
func CropRect(op pipeline.Crop, width, height int) (Rect, error) {
	if width <= 0 || height <= 0 {
		return Rect{}, invalidCrop("current dimensions unknown (%dx%d)", width, height)
	}

	switch {
	case op.HasRect():
		return explicitRect(op, width, height)
	case op.Gravity != "" && op.Width != nil && op.Height != nil:
		return gravityRect(op.Gravity, *op.Width, *op.Height, width, height)
	case op.Edge != "" && op.PercentValue != nil:
		p := *op.PercentValue
		if p < 0 || p > 100 {
			return Rect{}, invalidCrop("percentValue %v out of range", p)
		}
		span := height
		if op.Edge == pipeline.EdgeLeft || op.Edge == pipeline.EdgeRight {
			span = width
		}
		amount := int(math.Round(p / 100 * float64(span)))
		return edgeRect(op.Edge, amount, width, height)
	case op.Edge != "" && op.PixelValue != nil:
		return edgeRect(op.Edge, *op.PixelValue, width, height)
	default:
		return Rect{}, invalidCrop("no addressing scheme: need left/top/width/height, gravity with width and height, or edge with pixelValue or percentValue")
	}
}

// CropTarget reports the output size of a gravity crop. The cover-fit
// rectangle keeps the target aspect ratio, so the caller resamples it to the
// target when the sizes differ.
func CropTarget(op pipeline.Crop) (Size, bool) {
	if op.HasRect() || op.Gravity == "" || op.Width == nil || op.Height == nil {
		return Size{}, false
	}
	return Size{Width: *op.Width, Height: *op.Height}, true
}

func explicitRect(op pipeline.Crop, width, height int) (Rect, error) {
	left, top := *op.Left, *op.Top
	if left < 0 || top < 0 {
		return Rect{}, invalidCrop("negative origin %d,%d", left, top)
	}
	if *op.Width <= 0 || *op.Height <= 0 {
		return Rect{}, invalidCrop("non-positive size %dx%d", *op.Width, *op.Height)
	}

	if left >= width || top >= height {
		return Rect{}, invalidCrop("origin %d,%d outside %dx%d image", left, top, width, height)
	}

	return Rect{
		Left:   left,
		Top:    top,
		Width:  clamp(*op.Width, 1, width-left),
		Height: clamp(*op.Height, 1, height-top),
	}, nil
}

// gravityRect finds the largest rectangle with the target aspect ratio that
// fits the image and anchors it by gravity.
func gravityRect(gravity pipeline.Gravity, targetW, targetH, width, height int) (Rect, error) {
	if targetW <= 0 || targetH <= 0 {
		return Rect{}, invalidCrop("non-positive target %dx%d", targetW, targetH)
	}
	horizontal, vertical, ok := anchor(gravity)
	if !ok {
		return Rect{}, invalidCrop("unknown gravity %q", gravity)
	}

	w, h := width, height
	if width*targetH > height*targetW {
		w = min(scaled(height, targetW, targetH), width)
	} else {
		h = min(scaled(width, targetH, targetW), height)
	}

	r := Rect{Width: w, Height: h}
	switch horizontal {
	case -1:
		r.Left = 0
	case 1:
		r.Left = width - w
	default:
		r.Left = (width - w) / 2
	}
	switch vertical {
	case -1:
		r.Top = 0
	case 1:
		r.Top = height - h
	default:
		r.Top = (height - h) / 2
	}
	return r, nil
}

// anchor maps a gravity to horizontal and vertical placement: -1 start,
// 0 center, 1 end.
func anchor(g pipeline.Gravity) (int, int, bool) {
	switch g {
	case pipeline.GravityCenter, "centre":
		return 0, 0, true
	case pipeline.GravityNorth, "top":
		return 0, -1, true
	case pipeline.GravitySouth, "bottom":
		return 0, 1, true
	case pipeline.GravityWest, "left":
		return -1, 0, true
	case pipeline.GravityEast, "right":
		return 1, 0, true
	case pipeline.GravityNorthWest:
		return -1, -1, true
	case pipeline.GravityNorthEast:
		return 1, -1, true
	case pipeline.GravitySouthWest:
		return -1, 1, true
	case pipeline.GravitySouthEast:
		return 1, 1, true
	}
	return 0, 0, false
}

// edgeRect removes amount pixels from one edge.
func edgeRect(edge pipeline.Edge, amount, width, height int) (Rect, error) {
	if amount < 0 {
		return Rect{}, invalidCrop("negative amount %d", amount)
	}

	switch edge {
	case pipeline.EdgeTop:
		h := max(height-amount, 1)
		return Rect{Top: height - h, Width: width, Height: h}, nil
	case pipeline.EdgeBottom:
		return Rect{Width: width, Height: max(height-amount, 1)}, nil
	case pipeline.EdgeLeft:
		w := max(width-amount, 1)
		return Rect{Left: width - w, Width: w, Height: height}, nil
	case pipeline.EdgeRight:
		return Rect{Width: max(width-amount, 1), Height: height}, nil
	default:
		return Rect{}, invalidCrop("unknown edge %q", edge)
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
