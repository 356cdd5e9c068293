package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/leeforge/imgpipe/errors"
	"github.com/leeforge/imgpipe/media/codec"
	"github.com/leeforge/imgpipe/media/geometry"
	"github.com/leeforge/imgpipe/media/pipeline"
)

const (
	DefaultQuality = 85
	DefaultChroma  = "4:2:0"
)

// EncodeSettings is what the final encode will use. Convert operations
// replace the format fields; metadata operations set Strip.
type EncodeSettings struct {
	Format            codec.Format
	Quality           int
	Lossless          bool
	Progressive       bool
	ChromaSubsampling string
	CQLevel           int
	Speed             int
	Strip             bool

	// convertOp is the index of the Convert that produced the format fields,
	// or NoOperation when the source format is kept.
	convertOp int
	// keepMetadataOp is the index of a metadata operation that asked to keep
	// metadata, or NoOperation.
	keepMetadataOp int
}

// DefaultEncodeSettings re-encodes in the source format.
func DefaultEncodeSettings(source codec.Format) EncodeSettings {
	return EncodeSettings{
		Format:            source,
		Quality:           DefaultQuality,
		ChromaSubsampling: DefaultChroma,
		Strip:             true,
		convertOp:         NoOperation,
		keepMetadataOp:    NoOperation,
	}
}

// Run is the state of one image moving through the executor.
type Run struct {
	Handle   *Handle
	Settings EncodeSettings
	Warnings []Warning

	reshaped bool
}

// NewRun wraps a decoded image.
func NewRun(img *codec.Image) *Run {
	return &Run{
		Handle:   newHandle(img),
		Settings: DefaultEncodeSettings(img.Format),
	}
}

func (r *Run) warn(code string, op int, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Code: code, Message: fmt.Sprintf(format, args...), Operation: op})
}

// Release drops the current pixel buffer.
func (r *Run) Release() {
	r.Handle.Release()
}

// Executor applies single operations. All pixel work is delegated to the codec.
type Executor struct {
	codec     codec.Codec
	fallbacks map[codec.Format]codec.Format
}

// NewExecutor creates an executor. fallbacks maps a format the codec cannot
// encode to a substitute; it may be nil.
func NewExecutor(c codec.Codec, fallbacks map[codec.Format]codec.Format) *Executor {
	return &Executor{codec: c, fallbacks: fallbacks}
}

// Apply runs the operation at index against run.
func (e *Executor) Apply(ctx context.Context, run *Run, index int, op pipeline.Operation) error {
	if run.Handle.Released() {
		return apperrors.NewInternal("image handle already released")
	}

	switch v := op.(type) {
	case pipeline.Crop:
		return e.applyCrop(run, v)
	case pipeline.Resize:
		return e.applyResize(run, v)
	case pipeline.Convert:
		return e.applyConvert(run, index, v)
	case pipeline.Metadata:
		return e.applyMetadata(run, index, v)
	case nil:
		return apperrors.NewInvalidOperation("unknown", "missing operation")
	default:
		return apperrors.NewInvalidOperation(string(op.Kind()), "unrecognized operation")
	}
}

func (e *Executor) applyCrop(run *Run, op pipeline.Crop) error {
	h := run.Handle
	rect, err := geometry.CropRect(op, h.Width(), h.Height())
	if err != nil {
		return err
	}

	pixels, err := e.codec.Extract(h.Pixels(), rect.Image())
	if err != nil {
		return apperrors.NewCodec("extract", err)
	}

	if target, ok := geometry.CropTarget(op); ok && (target.Width != rect.Width || target.Height != rect.Height) {
		pixels, err = e.codec.Resample(pixels, target.Width, target.Height, codec.DefaultKernel)
		if err != nil {
			return apperrors.NewCodec("resample", err)
		}
	}

	run.Handle = h.next(pixels)
	run.reshaped = true
	return nil
}

func (e *Executor) applyResize(run *Run, op pipeline.Resize) error {
	h := run.Handle
	plan, err := geometry.ResizeTarget(op, h.Width(), h.Height())
	if err != nil {
		return err
	}
	run.reshaped = true
	if plan.NoOp {
		return nil
	}

	kernel := op.Kernel
	if kernel == "" {
		kernel = codec.DefaultKernel
	}

	pixels := h.Pixels()
	if plan.Scale.Width != h.Width() || plan.Scale.Height != h.Height() {
		pixels, err = e.codec.Resample(pixels, plan.Scale.Width, plan.Scale.Height, kernel)
		if err != nil {
			return apperrors.NewCodec("resample", err)
		}
	}
	if plan.Crop != nil {
		pixels, err = e.codec.Extract(pixels, plan.Crop.Image())
		if err != nil {
			return apperrors.NewCodec("extract", err)
		}
	}

	run.Handle = h.next(pixels)
	return nil
}

// applyConvert only records encode settings; pixels are untouched.
func (e *Executor) applyConvert(run *Run, index int, op pipeline.Convert) error {
	format, ok := codec.ParseFormat(op.Format)
	if !ok {
		return apperrors.NewUnsupportedFormat(op.Format)
	}

	s := run.Settings
	s.Format = format
	s.convertOp = index
	s.Quality = op.Quality
	if s.Quality <= 0 {
		s.Quality = DefaultQuality
	}
	s.Progressive = op.Progressive
	s.Lossless = op.Lossless
	s.ChromaSubsampling = op.ChromaSubsampling
	if s.ChromaSubsampling == "" {
		s.ChromaSubsampling = DefaultChroma
	}
	s.CQLevel = s.Quality
	if op.CQLevel != nil {
		s.CQLevel = *op.CQLevel
	}
	s.Speed = 0
	if op.Speed != nil {
		s.Speed = *op.Speed
	}

	run.Settings = s
	return nil
}

func (e *Executor) applyMetadata(run *Run, index int, op pipeline.Metadata) error {
	if len(op.PreserveFields) > 0 {
		run.warn(WarnPreserveFieldsUnsupported, index,
			"selective metadata preservation is not supported; ignored fields: %s", strings.Join(op.PreserveFields, ", "))
	}

	run.Settings.Strip = op.Strip
	run.Settings.keepMetadataOp = NoOperation
	if !op.Strip {
		run.Settings.keepMetadataOp = index
	}

	if !op.Autorotate {
		return nil
	}
	if run.reshaped {
		run.warn(WarnAutorotateLate, index,
			"autorotate runs after a crop or resize; earlier geometry used stored pixel coordinates")
	}

	h := run.Handle
	if h.Orientation() <= 1 {
		return nil
	}
	pixels, err := e.codec.ApplyOrientation(h.Pixels(), h.Orientation())
	if err != nil {
		return apperrors.NewCodec("orient", err)
	}
	run.Handle = h.next(pixels)
	run.Handle.orientation = 1
	return nil
}

// Finalize settles the output format. An unencodable format is replaced by
// its configured fallback with a warning; without one the run fails.
// Options the chosen codec format cannot honor are reported as warnings.
func (e *Executor) Finalize(run *Run) error {
	s := &run.Settings
	requested := s.Format
	caps := e.codec.Capabilities(requested)

	if !caps.Encode {
		fallback, ok := e.fallbacks[requested]
		if !ok || !e.codec.Capabilities(fallback).Encode {
			return apperrors.NewUnsupportedFormat(string(requested))
		}
		s.Format = fallback
		caps = e.codec.Capabilities(fallback)
		run.warn(WarnFormatSubstituted, s.convertOp,
			"%s encoding is not available; wrote %s instead", requested, fallback)
	}

	if caps.Lossless {
		s.Lossless = true
	} else if !caps.LosslessOption {
		s.Lossless = false
	}
	if s.Progressive && !caps.Progressive {
		run.warn(WarnProgressiveUnsupported, s.convertOp,
			"progressive %s output is not supported; wrote baseline", s.Format)
	}
	if s.Format == codec.JPEG && s.ChromaSubsampling == "4:4:4" && !caps.Chroma444 {
		run.warn(WarnChromaUnsupported, s.convertOp,
			"4:4:4 chroma subsampling is not supported; wrote 4:2:0")
	}
	if !s.Strip && s.keepMetadataOp != NoOperation && !caps.PreserveMetadata {
		run.warn(WarnMetadataNotPreserved, s.keepMetadataOp,
			"%s output cannot carry source metadata; it was dropped", s.Format)
	}
	return nil
}

// Encode writes the current pixels with the final settings.
func (e *Executor) Encode(ctx context.Context, run *Run) ([]byte, error) {
	s := run.Settings
	opts := codec.EncodeOptions{
		Quality:           s.Quality,
		Lossless:          s.Lossless,
		Progressive:       s.Progressive,
		ChromaSubsampling: s.ChromaSubsampling,
		CQLevel:           s.CQLevel,
		Speed:             s.Speed,
		StripMetadata:     s.Strip,
	}

	data, err := e.codec.Encode(ctx, run.Handle.Pixels(), s.Format, opts)
	if errors.Is(err, codec.ErrUnsupportedFormat) {
		return nil, apperrors.NewUnsupportedFormat(string(s.Format)).WithInnerError(err)
	}
	if err != nil {
		return nil, apperrors.NewCodec("encode", err)
	}
	return data, nil
}
