// Package pipeline holds the pipeline descriptor: the ordered operation list
// applied to every input image, its JSON form and its static validation.
package pipeline

import (
	"github.com/leeforge/imgpipe/media/codec"
)

// Kind tags an operation variant.
type Kind string

const (
	KindResize   Kind = "resize"
	KindCrop     Kind = "crop"
	KindConvert  Kind = "convert"
	KindMetadata Kind = "metadata"
)

// Operation is one declarative step. The set of implementations is closed.
type Operation interface {
	Kind() Kind
	isOperation()
}

type ResizeMode string

const (
	ModeWidth   ResizeMode = "width"
	ModeHeight  ResizeMode = "height"
	ModeContain ResizeMode = "contain"
	ModeCover   ResizeMode = "cover"
	ModeExact   ResizeMode = "exact"
)

// NeedsWidth reports whether the mode requires a target width.
func (m ResizeMode) NeedsWidth() bool {
	return m == ModeWidth || m == ModeContain || m == ModeCover || m == ModeExact
}

// NeedsHeight reports whether the mode requires a target height.
func (m ResizeMode) NeedsHeight() bool {
	return m == ModeHeight || m == ModeContain || m == ModeCover || m == ModeExact
}

type Resize struct {
	Mode      ResizeMode   `json:"mode,omitempty" validate:"omitempty,oneof=width height contain cover exact"`
	Width     *int         `json:"width,omitempty"`
	Height    *int         `json:"height,omitempty"`
	NoUpscale bool         `json:"noUpscale,omitempty"`
	Kernel    codec.Kernel `json:"kernel,omitempty" validate:"omitempty,oneof=lanczos3 lanczos2 mitchell cubic linear nearest"`
}

type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
)

type Gravity string

const (
	GravityCenter    Gravity = "center"
	GravityNorth     Gravity = "north"
	GravitySouth     Gravity = "south"
	GravityEast      Gravity = "east"
	GravityWest      Gravity = "west"
	GravityNorthEast Gravity = "northeast"
	GravityNorthWest Gravity = "northwest"
	GravitySouthEast Gravity = "southeast"
	GravitySouthWest Gravity = "southwest"
)

// Crop addresses the kept region with one of four schemes: an explicit
// rectangle (Left, Top, Width, Height); Gravity plus a Width x Height target;
// Edge plus PercentValue; Edge plus PixelValue.
type Crop struct {
	Edge         Edge     `json:"edge,omitempty" validate:"omitempty,oneof=top bottom left right"`
	PixelValue   *int     `json:"pixelValue,omitempty"`
	PercentValue *float64 `json:"percentValue,omitempty"`
	Gravity      Gravity  `json:"gravity,omitempty" validate:"omitempty,oneof=center centre north south east west northeast northwest southeast southwest top bottom left right"`
	Left         *int     `json:"left,omitempty"`
	Top          *int     `json:"top,omitempty"`
	Width        *int     `json:"width,omitempty"`
	Height       *int     `json:"height,omitempty"`
}

// HasRect reports whether all four explicit rectangle fields are set.
func (c Crop) HasRect() bool {
	return c.Left != nil && c.Top != nil && c.Width != nil && c.Height != nil
}

type Convert struct {
	Format            string `json:"format" validate:"omitempty,oneof=jpg jpeg png webp avif tiff tif"`
	Quality           int    `json:"quality,omitempty" default:"85" validate:"omitempty,min=1,max=100"`
	Progressive       bool   `json:"progressive,omitempty"`
	Lossless          bool   `json:"lossless,omitempty"`
	CQLevel           *int   `json:"cqLevel,omitempty"`
	Speed             *int   `json:"speed,omitempty"`
	ChromaSubsampling string `json:"chromaSubsampling,omitempty" validate:"omitempty,oneof=4:2:0 4:4:4"`
}

type Metadata struct {
	Strip          bool     `json:"strip" default:"true"`
	Autorotate     bool     `json:"autorotate,omitempty"`
	PreserveFields []string `json:"preserveFields,omitempty"`
}

// Unknown stands in for an element whose op tag is missing or not recognized.
// It only exists so the Validator can report it.
type Unknown struct {
	Tag string
}

func (Resize) Kind() Kind   { return KindResize }
func (Crop) Kind() Kind     { return KindCrop }
func (Convert) Kind() Kind  { return KindConvert }
func (Metadata) Kind() Kind { return KindMetadata }
func (u Unknown) Kind() Kind {
	return Kind(u.Tag)
}

func (Resize) isOperation()   {}
func (Crop) isOperation()     {}
func (Convert) isOperation()  {}
func (Metadata) isOperation() {}
func (Unknown) isOperation()  {}

// OutputConfig says where results go.
type OutputConfig struct {
	Dir     string `json:"dir,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// Descriptor is the unit of work applied to each input. It is not mutated
// during execution.
type Descriptor struct {
	Name       string
	Operations []Operation
	Output     OutputConfig
}

// Int returns a pointer to v, for building descriptors in code.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
