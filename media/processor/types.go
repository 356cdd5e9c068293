package processor

import (
	"time"

	apperrors "github.com/leeforge/imgpipe/errors"
)

// Warning codes. A warning means the image was written but something the
// descriptor asked for was not honored exactly.
const (
	WarnFormatSubstituted         = "format_substituted"
	WarnProgressiveUnsupported    = "progressive_unsupported"
	WarnChromaUnsupported         = "chroma_unsupported"
	WarnPreserveFieldsUnsupported = "preserve_fields_unsupported"
	WarnMetadataNotPreserved      = "metadata_not_preserved"
	WarnAutorotateLate            = "autorotate_late"
)

// NoOperation marks a warning that is not tied to a descriptor operation.
const NoOperation = -1

// Warning is a non-fatal deviation from the descriptor.
type Warning struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Operation int    `json:"operation"`
}

// Input identifies one image: either a path to read or bytes already in
// memory. Name overrides the base name used for output naming.
type Input struct {
	Path string
	Data []byte
	Name string
}

func (in Input) label() string {
	if in.Path != "" {
		return in.Path
	}
	if in.Name != "" {
		return in.Name
	}
	return "<memory>"
}

// Outcome is the result of one image run.
type Outcome struct {
	Index           int                 `json:"index"`
	InputPath       string              `json:"inputPath"`
	OutputPath      string              `json:"outputPath,omitempty"`
	Success         bool                `json:"success"`
	Error           string              `json:"error,omitempty"`
	ErrorType       apperrors.ErrorType `json:"errorType,omitempty"`
	FailedOperation *int                `json:"failedOperation,omitempty"`
	InputSize       int64               `json:"inputSize,omitempty"`
	OutputSize      int64               `json:"outputSize,omitempty"`
	Width           int                 `json:"width,omitempty"`
	Height          int                 `json:"height,omitempty"`
	Format          string              `json:"format,omitempty"`
	Duration        time.Duration       `json:"-"`
	DurationMs      int64               `json:"durationMs"`
	Warnings        []Warning           `json:"warnings,omitempty"`
}

// Summary aggregates a batch.
type Summary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	BytesIn   int64         `json:"bytesIn"`
	BytesOut  int64         `json:"bytesOut"`
	Duration  time.Duration `json:"-"`
}

// Savings is the fraction of input bytes saved by successful images, in [0,1]
// when outputs are smaller, negative when they grew.
func (s Summary) Savings() float64 {
	if s.BytesIn == 0 {
		return 0
	}
	return 1 - float64(s.BytesOut)/float64(s.BytesIn)
}

// BatchResult holds outcomes in input order.
type BatchResult struct {
	RunID    string    `json:"runId"`
	Outcomes []Outcome `json:"outcomes"`
	Summary  Summary   `json:"summary"`
	// Collisions lists output paths written by more than one image. The last
	// writer wins.
	Collisions []string `json:"collisions,omitempty"`
}

// Summarize derives the batch totals from outcomes. Byte totals count
// successful images only.
func Summarize(outcomes []Outcome, elapsed time.Duration) Summary {
	s := Summary{Total: len(outcomes), Duration: elapsed}
	for _, o := range outcomes {
		if !o.Success {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.BytesIn += o.InputSize
		s.BytesOut += o.OutputSize
	}
	return s
}
