package processor

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leeforge/imgpipe/concurrency"
	"github.com/leeforge/imgpipe/config"
	apperrors "github.com/leeforge/imgpipe/errors"
	"github.com/leeforge/imgpipe/logging"
	"github.com/leeforge/imgpipe/media/codec"
	"github.com/leeforge/imgpipe/media/naming"
	"github.com/leeforge/imgpipe/media/pipeline"
	"github.com/leeforge/imgpipe/media/storage"
	"github.com/leeforge/imgpipe/metrics"
)

// Options configures an Orchestrator.
type Options struct {
	// Concurrency caps in-flight images; <= 0 means GOMAXPROCS at call time.
	Concurrency int
	// Scheduler is "window" or "stream".
	Scheduler string
	// OutputDir applies when the descriptor names none.
	OutputDir string
	// Pattern applies when the descriptor names none.
	Pattern string
	// FormatFallbacks substitutes formats the codec cannot encode.
	FormatFallbacks map[codec.Format]codec.Format
}

// OptionsFromConfig maps the pipeline section of the configuration.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	opts := Options{
		Concurrency: cfg.Concurrency,
		Scheduler:   cfg.Scheduler,
		OutputDir:   cfg.OutputDir,
		Pattern:     cfg.Pattern,
	}
	if len(cfg.FormatFallbacks) > 0 {
		opts.FormatFallbacks = make(map[codec.Format]codec.Format, len(cfg.FormatFallbacks))
		for from, to := range cfg.FormatFallbacks {
			f, ok1 := codec.ParseFormat(from)
			t, ok2 := codec.ParseFormat(to)
			if ok1 && ok2 {
				opts.FormatFallbacks[f] = t
			}
		}
	}
	return opts
}

// Orchestrator runs descriptors against inputs.
type Orchestrator struct {
	codec    codec.Codec
	executor *Executor
	source   storage.Source
	sink     storage.Sink
	opts     Options
	logger   logging.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithStorage replaces the local filesystem for reading inputs and writing
// outputs.
func WithStorage(source storage.Source, sink storage.Sink) Option {
	return func(o *Orchestrator) {
		o.source = source
		o.sink = sink
	}
}

// WithMetrics records per-image counters and durations into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

// WithClock sets the time source used for durations and the {date} token.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(c codec.Codec, opts Options, options ...Option) *Orchestrator {
	local := storage.NewLocalProvider("")
	o := &Orchestrator{
		codec:  c,
		source: local,
		sink:   local,
		opts:   opts,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(o)
	}
	o.executor = NewExecutor(c, opts.FormatFallbacks)
	return o
}

// Run validates d and processes one input. Only a validation failure is
// returned as an error; every other failure is reported in the Outcome.
// A ctx done before the image starts yields a cancelled outcome; once
// started, the image runs to completion.
func (o *Orchestrator) Run(ctx context.Context, input Input, d pipeline.Descriptor) (Outcome, error) {
	if err := pipeline.Validate(d).Err(); err != nil {
		return Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		cancelled := apperrors.NewCancelled(context.Cause(ctx))
		return Outcome{InputPath: input.Path, Error: cancelled.Error(), ErrorType: cancelled.Type}, nil
	}
	log := o.logger.With(zap.String("run_id", uuid.NewString()))
	outcome := o.process(context.WithoutCancel(ctx), log, input, d, 0)
	o.record(outcome)
	return outcome, nil
}

// RunBatch validates d once and processes inputs with bounded concurrency.
// Outcomes keep input order. When ctx is done, images already started finish
// and the rest are reported as cancelled.
func (o *Orchestrator) RunBatch(ctx context.Context, inputs []Input, d pipeline.Descriptor) (*BatchResult, error) {
	if err := pipeline.Validate(d).Err(); err != nil {
		return nil, err
	}

	start := o.now()
	runID := uuid.NewString()
	limit := concurrency.Limit(o.opts.Concurrency)
	log := o.logger.With(zap.String("run_id", runID))
	log.Info("batch started",
		zap.Int("inputs", len(inputs)),
		zap.Int("concurrency", limit),
		zap.String("scheduler", o.opts.Scheduler),
		zap.String("preset", d.Name))

	outcomes := make([]Outcome, len(inputs))
	executor := concurrency.NewExecutor(o.opts.Scheduler, limit)
	skipped := executor.Execute(ctx, len(inputs), func(ctx context.Context, i int) {
		// Started images run to completion even if the batch is cancelled.
		outcomes[i] = o.process(context.WithoutCancel(ctx), log, inputs[i], d, i)
	})

	for _, i := range skipped {
		err := apperrors.NewCancelled(context.Cause(ctx))
		outcomes[i] = Outcome{
			Index:     i,
			InputPath: inputs[i].Path,
			Error:     err.Error(),
			ErrorType: err.Type,
		}
	}

	for _, outcome := range outcomes {
		o.record(outcome)
	}
	o.recordBatch(len(skipped))

	result := &BatchResult{
		RunID:      runID,
		Outcomes:   outcomes,
		Summary:    Summarize(outcomes, o.now().Sub(start)),
		Collisions: collisions(outcomes),
	}
	for _, path := range result.Collisions {
		log.Warn("output path written by more than one image; last writer wins", zap.String("output", path))
	}

	log.Info("batch finished",
		zap.Int("succeeded", result.Summary.Succeeded),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("cancelled", len(skipped)),
		zap.Int64("bytes_in", result.Summary.BytesIn),
		zap.Int64("bytes_out", result.Summary.BytesOut),
		zap.Duration("duration", result.Summary.Duration))

	return result, nil
}

// process runs one image. It never returns an error and never panics.
func (o *Orchestrator) process(ctx context.Context, log logging.Logger, input Input, d pipeline.Descriptor, index int) (outcome Outcome) {
	start := o.now()
	log = log.With(zap.String("input", input.label()), zap.Int("index", index))
	outcome = Outcome{Index: index, InputPath: input.Path}

	var run *Run
	fail := func(err error, op *int) Outcome {
		outcome.Success = false
		outcome.Error = err.Error()
		outcome.ErrorType = apperrors.TypeOf(err)
		outcome.FailedOperation = op
		outcome.OutputPath = ""
		if run != nil {
			outcome.Warnings = run.Warnings
		}
		o.finish(&outcome, start)

		fields := []zap.Field{zap.String("error_type", string(outcome.ErrorType)), zap.Error(err)}
		if op != nil {
			fields = append(fields, zap.Int("operation", *op))
		}
		log.Warn("image failed", fields...)
		return outcome
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = fail(apperrors.Recover(r), nil)
		}
	}()

	data, size, err := o.load(ctx, input)
	if err != nil {
		return fail(err, nil)
	}
	outcome.InputSize = size

	img, err := o.codec.Decode(ctx, data)
	if err != nil {
		return fail(apperrors.NewDecode(err), nil)
	}

	run = NewRun(img)
	defer run.Release()

	for i, op := range d.Operations {
		if err := o.executor.Apply(ctx, run, i, op); err != nil {
			return fail(err, &i)
		}
	}

	if err := o.executor.Finalize(run); err != nil {
		var op *int
		if c := run.Settings.convertOp; c != NoOperation {
			op = &c
		}
		return fail(err, op)
	}

	width, height := run.Handle.Width(), run.Handle.Height()
	format := run.Settings.Format
	path := o.outputPath(d, naming.Tokens{
		Base:   o.baseName(input),
		Ext:    format.Extension(),
		Width:  width,
		Height: height,
		Format: format.String(),
		Preset: d.Name,
		Index:  index + 1,
		Hash:   naming.Hash(data),
		Date:   naming.Date(start),
	})

	encoded, err := o.executor.Encode(ctx, run)
	if err != nil {
		return fail(err, nil)
	}

	info, err := o.sink.Write(ctx, path, encoded)
	if err != nil {
		return fail(apperrors.NewIO("cannot write output", err).WithDetail("path", path), nil)
	}

	outcome.Success = true
	outcome.OutputPath = path
	outcome.OutputSize = info.Size
	outcome.Width = width
	outcome.Height = height
	outcome.Format = format.String()
	outcome.Warnings = run.Warnings
	o.finish(&outcome, start)

	for _, w := range run.Warnings {
		log.Warn(w.Message, zap.String("warning", w.Code), zap.Int("operation", w.Operation))
	}
	log.Debug("image processed",
		zap.String("output", path),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int64("bytes_in", outcome.InputSize),
		zap.Int64("bytes_out", outcome.OutputSize),
		zap.Duration("duration", outcome.Duration))
	return outcome
}

func (o *Orchestrator) finish(outcome *Outcome, start time.Time) {
	outcome.Duration = o.now().Sub(start)
	outcome.DurationMs = outcome.Duration.Milliseconds()
}

func (o *Orchestrator) load(ctx context.Context, input Input) ([]byte, int64, error) {
	if input.Data != nil {
		return input.Data, int64(len(input.Data)), nil
	}
	if input.Path == "" {
		return nil, 0, apperrors.NewIO("input has neither data nor path", nil)
	}
	data, info, err := o.source.Read(ctx, input.Path)
	if err != nil {
		return nil, 0, apperrors.NewIO("cannot read input", err).WithDetail("path", input.Path)
	}
	return data, info.Size, nil
}

func (o *Orchestrator) baseName(input Input) string {
	if input.Name != "" {
		return naming.BaseName(input.Name)
	}
	if base := naming.BaseName(input.Path); base != "" {
		return base
	}
	return "image"
}

func (o *Orchestrator) outputPath(d pipeline.Descriptor, tokens naming.Tokens) string {
	pattern := d.Output.Pattern
	if pattern == "" {
		pattern = o.opts.Pattern
	}
	rel := naming.Resolve(pattern, tokens)
	if filepath.IsAbs(rel) {
		return rel
	}

	dir := d.Output.Dir
	if dir == "" {
		dir = o.opts.OutputDir
	}
	return filepath.Join(dir, rel)
}

// collisions returns output paths claimed by more than one successful image.
func collisions(outcomes []Outcome) []string {
	seen := make(map[string]int, len(outcomes))
	for _, o := range outcomes {
		if o.Success {
			seen[o.OutputPath]++
		}
	}

	var dup []string
	for path, n := range seen {
		if n > 1 {
			dup = append(dup, path)
		}
	}
	sort.Strings(dup)
	return dup
}

// FailedOutcomes returns the failures in a batch, for reporting.
func (r *BatchResult) FailedOutcomes() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Success {
			failed = append(failed, o)
		}
	}
	return failed
}

// String renders a one-line description of an outcome.
func (o Outcome) String() string {
	var b strings.Builder
	if o.Success {
		b.WriteString("ok   ")
		b.WriteString(o.InputPath)
		b.WriteString(" -> ")
		b.WriteString(o.OutputPath)
		return b.String()
	}
	b.WriteString("FAIL ")
	b.WriteString(o.InputPath)
	b.WriteString(": ")
	b.WriteString(o.Error)
	return b.String()
}
