// Package json wraps json-iterator with creasty/defaults: struct default tags
// are applied before decoding, so fields missing from the input get their
// defaults while explicit values, zero values included, are kept.
package json

import (
	"io"

	"github.com/creasty/defaults"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage is a raw encoded JSON value.
type RawMessage = jsoniter.RawMessage

type Encoder struct {
	*jsoniter.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		Encoder: json.NewEncoder(w),
	}
}

type Decoder struct {
	*jsoniter.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		Decoder: json.NewDecoder(r),
	}
}

// Decode applies defaults to v, then decodes into it.
func (d *Decoder) Decode(v any) error {
	if err := defaults.Set(v); err != nil {
		return err
	}
	return d.Decoder.Decode(v)
}

func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal applies defaults to v, then decodes data into it.
func Unmarshal(data []byte, v any) error {
	if err := defaults.Set(v); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// UnmarshalRaw decodes without touching defaults.
func UnmarshalRaw(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
