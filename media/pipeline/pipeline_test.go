package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/imgpipe/errors"
	"github.com/leeforge/imgpipe/json"
	"github.com/leeforge/imgpipe/media/codec"
)

const webPreset = `{
  "name": "web",
  "pipeline": [
    {"op": "metadata", "autorotate": true, "strip": true},
    {"op": "resize", "mode": "width", "width": 1024, "noUpscale": true},
    {"op": "crop", "edge": "top", "percentValue": 10},
    {"op": "convert", "format": "jpg", "quality": 80, "progressive": true}
  ],
  "output": {"dir": "out", "pattern": "{base}_{width}x{height}.{ext}"}
}`

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor([]byte(webPreset))
	require.NoError(t, err)

	assert.Equal(t, "web", d.Name)
	assert.Equal(t, OutputConfig{Dir: "out", Pattern: "{base}_{width}x{height}.{ext}"}, d.Output)
	require.Len(t, d.Operations, 4)

	assert.Equal(t, Metadata{Strip: true, Autorotate: true}, d.Operations[0])
	assert.Equal(t, Resize{Mode: ModeWidth, Width: Int(1024), NoUpscale: true}, d.Operations[1])
	assert.Equal(t, Crop{Edge: EdgeTop, PercentValue: Float(10)}, d.Operations[2])
	assert.Equal(t, Convert{Format: "jpg", Quality: 80, Progressive: true}, d.Operations[3])

	assert.True(t, Validate(d).Valid)
}

func TestParseDescriptorDefaults(t *testing.T) {
	d, err := ParseDescriptor([]byte(`{"pipeline":[
		{"op":"convert","format":"png"},
		{"op":"metadata","autorotate":true},
		{"op":"metadata","strip":false}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, 85, d.Operations[0].(Convert).Quality)
	assert.True(t, d.Operations[1].(Metadata).Strip)
	assert.False(t, d.Operations[2].(Metadata).Strip)
}

func TestParseDescriptorInfersResizeMode(t *testing.T) {
	tests := []struct {
		name string
		json string
		want ResizeMode
	}{
		{"both", `{"op":"resize","width":800,"height":600}`, ModeContain},
		{"width", `{"op":"resize","width":800}`, ModeWidth},
		{"height", `{"op":"resize","height":600}`, ModeHeight},
		{"explicit", `{"op":"resize","mode":"cover","width":800,"height":600}`, ModeCover},
		{"none", `{"op":"resize"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDescriptor([]byte(`{"pipeline":[` + tt.json + `]}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Operations[0].(Resize).Mode)
		})
	}
}

func TestParseDescriptorUnknownOps(t *testing.T) {
	d, err := ParseDescriptor([]byte(`{"pipeline":[{"op":"blur","sigma":2},{"width":3},null]}`))
	require.NoError(t, err)

	assert.Equal(t, []Operation{Unknown{Tag: "blur"}, Unknown{}, Unknown{}}, d.Operations)
}

func TestParseDescriptorMalformed(t *testing.T) {
	_, err := ParseDescriptor([]byte(`{"pipeline":[`))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	_, err = ParseDescriptor([]byte(`{"pipeline":[{"op":"resize","width":"wide"}]}`))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestDecodeDescriptorReader(t *testing.T) {
	d, err := DecodeDescriptor(strings.NewReader(webPreset))
	require.NoError(t, err)
	assert.Len(t, d.Operations, 4)
}

func TestDescriptorJSONRoundTrip(t *testing.T) {
	d, err := ParseDescriptor([]byte(webPreset))
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	again, err := ParseDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, d, again)
}

func TestValidateEmptyPipeline(t *testing.T) {
	result := Validate(Descriptor{})

	assert.False(t, result.Valid)
	assert.Equal(t, []string{"pipeline must contain at least one operation"}, result.Violations)
}

func TestValidateReportsEveryViolationInOrder(t *testing.T) {
	d := Descriptor{Operations: []Operation{
		Resize{Mode: ModeContain, Width: Int(800)},
		Unknown{Tag: "blur"},
		Convert{},
	}}

	result := Validate(d)
	require.False(t, result.Valid)
	assert.Equal(t, []string{
		`pipeline[0] (resize): mode "contain" requires height`,
		`pipeline[1] (blur): unrecognized operation "blur"`,
		`pipeline[2] (convert): format is required`,
	}, result.Violations)

	err := result.Err()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, result.Violations, apperrors.Violations(err))
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{"resize without mode", Resize{}, "mode is required"},
		{"width mode needs width", Resize{Mode: ModeWidth, Height: Int(10)}, `mode "width" requires width`},
		{"height mode needs height", Resize{Mode: ModeHeight, Width: Int(10)}, `mode "height" requires height`},
		{"non-positive width", Resize{Mode: ModeWidth, Width: Int(0)}, "width must be positive"},
		{"bad mode", Resize{Mode: "fill", Width: Int(10)}, `mode "fill" must be one of [width height contain cover exact]`},
		{"bad kernel", Resize{Mode: ModeWidth, Width: Int(10), Kernel: "box"}, `kernel "box" must be one of`},
		{"negative pixels", Crop{Edge: EdgeTop, PixelValue: Int(-1)}, "pixelValue must not be negative"},
		{"percent range", Crop{Edge: EdgeTop, PercentValue: Float(120)}, "percentValue must be between 0 and 100"},
		{"bad edge", Crop{Edge: "middle", PixelValue: Int(1)}, `edge "middle" must be one of`},
		{"bad gravity", Crop{Gravity: "up", Width: Int(1), Height: Int(1)}, `gravity "up" must be one of`},
		{"bad format", Convert{Format: "heic"}, `format "heic" must be one of`},
		{"quality range", Convert{Format: "jpg", Quality: 101}, "quality must be at most 100"},
		{"cq range", Convert{Format: "avif", CQLevel: Int(64)}, "cqLevel must be between 0 and 63"},
		{"speed range", Convert{Format: "avif", Speed: Int(11)}, "speed must be between 0 and 10"},
		{"chroma", Convert{Format: "jpg", ChromaSubsampling: "4:1:1"}, `chromaSubsampling "4:1:1" must be one of`},
		{"missing tag", Unknown{}, "missing op tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(Descriptor{Operations: []Operation{tt.op}})
			require.False(t, result.Valid)
			require.NotEmpty(t, result.Violations)
			assert.Contains(t, strings.Join(result.Violations, "\n"), tt.want)
		})
	}
}

func TestValidateAcceptsAliases(t *testing.T) {
	d := Descriptor{Operations: []Operation{
		Crop{Gravity: "centre", Width: Int(10), Height: Int(10)},
		Crop{Edge: EdgeBottom, PercentValue: Float(100)},
		Resize{Mode: ModeCover, Width: Int(10), Height: Int(10), Kernel: codec.Mitchell},
		Convert{Format: "jpeg", ChromaSubsampling: "4:4:4"},
		Convert{Format: "tif"},
		Metadata{Strip: true},
	}}

	result := Validate(d)
	assert.True(t, result.Valid, result.Violations)
	assert.NoError(t, result.Err())
}
