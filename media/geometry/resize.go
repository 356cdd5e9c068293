package geometry

import (
	"github.com/leeforge/imgpipe/media/pipeline"
)

// ResizeTarget resolves op against a width x height image.
//
// Contain pins the limiting dimension to its target and scales the other.
// Cover scales until both targets are covered, then center-crops to exactly
// the target. With NoUpscale, any plan whose scale factor exceeds 1 collapses
// to the current size.
func ResizeTarget(op pipeline.Resize, width, height int) (Plan, error) {
	if width <= 0 || height <= 0 {
		return Plan{}, invalidResize("current dimensions unknown (%dx%d)", width, height)
	}

	var tw, th int
	if op.Mode.NeedsWidth() {
		if op.Width == nil {
			return Plan{}, invalidResize("mode %q requires width", op.Mode)
		}
		if tw = *op.Width; tw <= 0 {
			return Plan{}, invalidResize("width must be positive, got %d", tw)
		}
	}
	if op.Mode.NeedsHeight() {
		if op.Height == nil {
			return Plan{}, invalidResize("mode %q requires height", op.Mode)
		}
		if th = *op.Height; th <= 0 {
			return Plan{}, invalidResize("height must be positive, got %d", th)
		}
	}

	var (
		plan    Plan
		upscale bool
	)
	switch op.Mode {
	case pipeline.ModeWidth:
		plan = scalePlan(tw, scaled(height, tw, width))
		upscale = tw > width
	case pipeline.ModeHeight:
		plan = scalePlan(scaled(width, th, height), th)
		upscale = th > height
	case pipeline.ModeContain:
		// tw/width <= th/height means width is the limiting side.
		if tw*height <= th*width {
			plan = scalePlan(tw, min(scaled(height, tw, width), th))
		} else {
			plan = scalePlan(min(scaled(width, th, height), tw), th)
		}
		upscale = tw > width && th > height
	case pipeline.ModeCover:
		plan = coverPlan(tw, th, width, height)
		upscale = tw > width || th > height
	case pipeline.ModeExact:
		plan = scalePlan(tw, th)
		upscale = tw > width || th > height
	default:
		return Plan{}, invalidResize("unknown mode %q", op.Mode)
	}

	if op.NoUpscale && upscale {
		plan = scalePlan(width, height)
	}
	plan.NoOp = plan.Crop == nil && plan.Width == width && plan.Height == height
	return plan, nil
}

func scalePlan(w, h int) Plan {
	return Plan{Width: w, Height: h, Scale: Size{Width: w, Height: h}}
}

func coverPlan(tw, th, width, height int) Plan {
	var s Size
	// tw/width >= th/height means width drives the scale.
	if tw*height >= th*width {
		s = Size{Width: tw, Height: max(scaled(height, tw, width), th)}
	} else {
		s = Size{Width: max(scaled(width, th, height), tw), Height: th}
	}

	plan := Plan{Width: tw, Height: th, Scale: s}
	if s.Width != tw || s.Height != th {
		plan.Crop = &Rect{
			Left:   (s.Width - tw) / 2,
			Top:    (s.Height - th) / 2,
			Width:  tw,
			Height: th,
		}
	}
	return plan
}
