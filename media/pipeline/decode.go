package pipeline

import (
	"io"

	apperrors "github.com/leeforge/imgpipe/errors"
	"github.com/leeforge/imgpipe/json"
)

type rawDescriptor struct {
	Name     string            `json:"name"`
	Pipeline []json.RawMessage `json:"pipeline"`
	Output   OutputConfig      `json:"output"`
}

type rawTag struct {
	Op string `json:"op"`
}

// ParseDescriptor decodes the JSON form. Only malformed JSON is an error;
// unknown op tags and missing fields are left for Validate.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var raw rawDescriptor
	if err := json.UnmarshalRaw(data, &raw); err != nil {
		return Descriptor{}, apperrors.NewValidation("malformed pipeline descriptor", err.Error()).WithInnerError(err)
	}

	d := Descriptor{
		Name:       raw.Name,
		Output:     raw.Output,
		Operations: make([]Operation, 0, len(raw.Pipeline)),
	}
	for i, element := range raw.Pipeline {
		op, err := decodeOperation(element)
		if err != nil {
			return Descriptor{}, apperrors.NewValidation("malformed pipeline descriptor", err.Error()).
				WithInnerError(err).
				WithDetail("index", i)
		}
		d.Operations = append(d.Operations, op)
	}
	return d, nil
}

// DecodeDescriptor reads and decodes the JSON form from r.
func DecodeDescriptor(r io.Reader) (Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Descriptor{}, apperrors.NewIO("cannot read pipeline descriptor", err)
	}
	return ParseDescriptor(data)
}

func decodeOperation(element json.RawMessage) (Operation, error) {
	var tag rawTag
	if len(element) == 0 || string(element) == "null" {
		return Unknown{}, nil
	}
	if err := json.UnmarshalRaw(element, &tag); err != nil {
		return nil, err
	}

	switch Kind(tag.Op) {
	case KindResize:
		var op Resize
		if err := json.Unmarshal(element, &op); err != nil {
			return nil, err
		}
		op.Mode = inferMode(op)
		return op, nil
	case KindCrop:
		var op Crop
		err := json.Unmarshal(element, &op)
		return op, err
	case KindConvert:
		var op Convert
		err := json.Unmarshal(element, &op)
		return op, err
	case KindMetadata:
		var op Metadata
		err := json.Unmarshal(element, &op)
		return op, err
	default:
		return Unknown{Tag: tag.Op}, nil
	}
}

// inferMode picks a mode when the descriptor leaves it out.
func inferMode(op Resize) ResizeMode {
	if op.Mode != "" {
		return op.Mode
	}
	switch {
	case op.Width != nil && op.Height != nil:
		return ModeContain
	case op.Width != nil:
		return ModeWidth
	case op.Height != nil:
		return ModeHeight
	default:
		return ""
	}
}

// MarshalJSON writes the interchange form, tagging each operation with op.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	elements := make([]map[string]any, 0, len(d.Operations))
	for _, op := range d.Operations {
		element := map[string]any{}
		if _, unknown := op.(Unknown); !unknown {
			data, err := json.Marshal(op)
			if err != nil {
				return nil, err
			}
			if err := json.UnmarshalRaw(data, &element); err != nil {
				return nil, err
			}
		}
		element["op"] = string(op.Kind())
		elements = append(elements, element)
	}

	out := map[string]any{"pipeline": elements}
	if d.Name != "" {
		out["name"] = d.Name
	}
	if d.Output != (OutputConfig{}) {
		out["output"] = d.Output
	}
	return json.Marshal(out)
}

// UnmarshalJSON lets a Descriptor be embedded in other JSON documents.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDescriptor(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
