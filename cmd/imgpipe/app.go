package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/leeforge/imgpipe/config"
	apperrors "github.com/leeforge/imgpipe/errors"
	"github.com/leeforge/imgpipe/json"
	"github.com/leeforge/imgpipe/logging"
	"github.com/leeforge/imgpipe/media/codec"
	"github.com/leeforge/imgpipe/media/pipeline"
	"github.com/leeforge/imgpipe/media/processor"
	"github.com/leeforge/imgpipe/metrics"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitInvalid = 2
)

type cliFlags struct {
	configDir   string
	preset      string
	out         string
	pattern     string
	concurrency int
	scheduler   string
	jsonOutput  bool
	metrics     bool

	width   int
	height  int
	mode    string
	format  string
	quality int
	strip   bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, []string, error) {
	f := &cliFlags{}
	fs := pflag.NewFlagSet("imgpipe", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: imgpipe [flags] <files or directories>")
		fs.PrintDefaults()
	}

	fs.StringVar(&f.configDir, "config", "", "configuration directory (default $CONFIG_PATH or ./config)")
	fs.StringVarP(&f.preset, "preset", "p", "", "pipeline descriptor JSON file")
	fs.StringVarP(&f.out, "out", "o", "", "output directory")
	fs.StringVar(&f.pattern, "pattern", "", "output file name pattern, e.g. {base}_{width}x{height}.{ext}")
	fs.IntVarP(&f.concurrency, "concurrency", "c", -1, "images processed in parallel (0 = all CPUs)")
	fs.StringVar(&f.scheduler, "scheduler", "", "batch scheduler: window or stream")
	fs.BoolVar(&f.jsonOutput, "json", false, "print the batch result as JSON")
	fs.BoolVar(&f.metrics, "metrics", false, "print batch metrics to stderr in Prometheus text format")

	fs.IntVar(&f.width, "width", 0, "resize target width")
	fs.IntVar(&f.height, "height", 0, "resize target height")
	fs.StringVar(&f.mode, "mode", "", "resize mode: width, height, contain, cover or exact")
	fs.StringVar(&f.format, "format", "", "output format: jpg, png, webp, avif or tiff")
	fs.IntVarP(&f.quality, "quality", "q", 0, "output quality 1-100")
	fs.BoolVar(&f.strip, "strip", true, "strip metadata and apply EXIF orientation")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// descriptor loads the preset file or builds a descriptor from quick flags.
func (f *cliFlags) descriptor() (pipeline.Descriptor, error) {
	if f.preset != "" {
		file, err := os.Open(f.preset)
		if err != nil {
			return pipeline.Descriptor{}, apperrors.NewIO("cannot open preset", err)
		}
		defer file.Close()

		d, err := pipeline.DecodeDescriptor(file)
		if err != nil {
			return pipeline.Descriptor{}, err
		}
		if d.Name == "" {
			d.Name = strings.TrimSuffix(filepath.Base(f.preset), filepath.Ext(f.preset))
		}
		return d, nil
	}

	d := pipeline.Descriptor{Name: "custom"}
	if f.strip {
		d.Operations = append(d.Operations, pipeline.Metadata{Strip: true, Autorotate: true})
	}
	if f.width > 0 || f.height > 0 {
		op := pipeline.Resize{Mode: pipeline.ResizeMode(f.mode), NoUpscale: true}
		if f.width > 0 {
			op.Width = pipeline.Int(f.width)
		}
		if f.height > 0 {
			op.Height = pipeline.Int(f.height)
		}
		if op.Mode == "" {
			switch {
			case op.Width != nil && op.Height != nil:
				op.Mode = pipeline.ModeContain
			case op.Width != nil:
				op.Mode = pipeline.ModeWidth
			default:
				op.Mode = pipeline.ModeHeight
			}
		}
		d.Operations = append(d.Operations, op)
	}
	if f.format != "" || f.quality > 0 {
		format := f.format
		if format == "" {
			format = string(codec.JPEG)
		}
		d.Operations = append(d.Operations, pipeline.Convert{Format: format, Quality: f.quality})
	}
	return d, nil
}

func (f *cliFlags) apply(cfg *config.Config) {
	if f.out != "" {
		cfg.Pipeline.OutputDir = f.out
	}
	if f.pattern != "" {
		cfg.Pipeline.Pattern = f.pattern
	}
	if f.concurrency >= 0 {
		cfg.Pipeline.Concurrency = f.concurrency
	}
	if f.scheduler != "" {
		cfg.Pipeline.Scheduler = f.scheduler
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, paths, err := parseFlags(args, stderr)
	if err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitInvalid
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "no input files")
		return exitInvalid
	}

	opts := config.DefaultOptions()
	if flags.configDir != "" {
		opts.BasePath = flags.configDir
	}
	cfg, err := config.Load(opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}

	logger := logging.Init(cfg.Log).Named("imgpipe")
	defer logging.CloseAllWriters()
	defer logger.Sync()

	d, err := flags.descriptor()
	if err != nil {
		printError(stderr, err)
		return exitInvalid
	}

	inputs, err := collectInputs(paths)
	if err != nil {
		printError(stderr, err)
		return exitInvalid
	}

	collector := metrics.NewCollector()
	o := processor.NewOrchestrator(codec.NewNative(), processor.OptionsFromConfig(cfg.Pipeline),
		processor.WithLogger(logger), processor.WithMetrics(collector))
	result, err := o.RunBatch(ctx, inputs, d)
	if err != nil {
		printError(stderr, err)
		return exitInvalid
	}

	if flags.jsonOutput {
		if err := writeJSON(stdout, result); err != nil {
			logger.Error("cannot write result", zap.Error(err))
		}
	} else {
		printResult(stdout, result)
	}
	if flags.metrics {
		if err := collector.WritePrometheus(stderr); err != nil {
			logger.Error("cannot write metrics", zap.Error(err))
		}
	}

	if result.Summary.Failed > 0 {
		return exitFailed
	}
	return exitOK
}

func printError(w io.Writer, err error) {
	if violations := apperrors.Violations(err); len(violations) > 0 {
		fmt.Fprintln(w, apperrors.FromError(err).Message+":")
		for _, v := range violations {
			fmt.Fprintln(w, "  - "+v)
		}
		return
	}
	fmt.Fprintln(w, apperrors.NewErrorFormatter(false, true).Format(err))
}

func printResult(w io.Writer, result *processor.BatchResult) {
	for _, o := range result.Outcomes {
		fmt.Fprintln(w, o.String())
		for _, warning := range o.Warnings {
			fmt.Fprintf(w, "     warning: %s\n", warning.Message)
		}
	}
	s := result.Summary
	fmt.Fprintf(w, "%d images: %d ok, %d failed, %d -> %d bytes (%.1f%% saved) in %s\n",
		s.Total, s.Succeeded, s.Failed, s.BytesIn, s.BytesOut, s.Savings()*100, s.Duration.Round(time.Millisecond))
	for _, path := range result.Collisions {
		fmt.Fprintf(w, "warning: %s was written more than once\n", path)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".tif": true, ".tiff": true, ".bmp": true,
}

// collectInputs expands directories one level deep to their image files.
// Files named explicitly are kept whatever their extension.
func collectInputs(paths []string) ([]processor.Input, error) {
	var inputs []processor.Input
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, apperrors.NewIO("cannot read input", err).WithDetail("path", path)
		}
		if !info.IsDir() {
			inputs = append(inputs, processor.Input{Path: path})
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, apperrors.NewIO("cannot list directory", err).WithDetail("path", path)
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			inputs = append(inputs, processor.Input{Path: filepath.Join(path, name)})
		}
	}
	return inputs, nil
}
