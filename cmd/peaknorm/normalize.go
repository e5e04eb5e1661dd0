package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/R-a-dio/peaknorm"
	"github.com/R-a-dio/peaknorm/config"
	"github.com/R-a-dio/peaknorm/errors"
	"github.com/R-a-dio/peaknorm/ffmpeg"
	"github.com/R-a-dio/peaknorm/normalizer"
	"github.com/dustin/go-humanize"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// dryRun will be filled with the normalize -dry-run flag value
var dryRun bool

var normalizeCmd = command{
	name:     "normalize",
	synopsis: "normalize the peak amplitude of an audio file in place",
	usage: `normalize [-v] [-dry-run] <file>:
	amplify <file> so its peak sits just below full scale, the file is
	replaced in place; files that already peak close to full scale are
	left untouched
`,
	setFlags: func(f *flag.FlagSet) {
		// defaults come from the top-level flags so `peaknorm -v file` works
		f.BoolVar(&verbose, "v", verbose, "print measured peak and applied gain")
		f.BoolVar(&verbose, "verbose", verbose, "print measured peak and applied gain")
		f.BoolVar(&dryRun, "dry-run", false, "only measure, never modify the file")
	},
	execute:    executeNormalize,
	loadConfig: loadConfig,
}

var measureCmd = command{
	name:     "measure",
	synopsis: "print the peak amplitude of an audio file",
	usage: `measure <file>:
	print the peak amplitude of <file> and the gain normalize would apply
`,
	execute:    executeMeasure,
	loadConfig: loadConfig,
}

// fileArg returns the single file argument in args
func fileArg(op errors.Op, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", errors.E(op, errors.InvalidArgument,
			errors.Info(fmt.Sprintf("expected exactly one file, got %d arguments", len(args))))
	}
	return args[0], nil
}

// prepare sets up the logger and deadline of a single run
func prepare(ctx context.Context, cfg config.Config) (context.Context, context.CancelFunc) {
	logger := zerolog.Ctx(ctx).With().Str("run", xid.New().String()).Logger()
	if verbose && logger.GetLevel() > zerolog.InfoLevel {
		logger = logger.Level(zerolog.InfoLevel)
	}
	ctx = logger.WithContext(ctx)

	if timeout := time.Duration(cfg.Conf().Timeout); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func newNormalizer(cfg config.Config) *normalizer.Normalizer {
	return normalizer.New(cfg, afero.NewOsFs(), ffmpeg.New(cfg))
}

func executeNormalize(ctx context.Context, cfg config.Config, args []string) error {
	const op errors.Op = "cmd/peaknorm.executeNormalize"

	path, err := fileArg(op, args)
	if err != nil {
		return err
	}

	if dryRun {
		return executeMeasure(ctx, cfg, args)
	}

	ctx, cancel := prepare(ctx, cfg)
	defer cancel()

	res, err := newNormalizer(cfg).Normalize(ctx, path)
	if err != nil {
		return err
	}

	if res.Applied {
		zerolog.Ctx(ctx).Info().
			Str("path", res.Path).
			Str("size", humanize.IBytes(uint64(res.Size))).
			Msg("normalized")
	}
	return nil
}

func executeMeasure(ctx context.Context, cfg config.Config, args []string) error {
	const op errors.Op = "cmd/peaknorm.executeMeasure"

	path, err := fileArg(op, args)
	if err != nil {
		return err
	}

	ctx, cancel := prepare(ctx, cfg)
	defer cancel()

	res, err := newNormalizer(cfg).Measure(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, formatMeasurement(res))
	return nil
}

// formatMeasurement returns the one line summary printed by measure
func formatMeasurement(res peaknorm.Result) string {
	gain := "none"
	if res.Gain != 0 {
		gain = res.Gain.String()
	}
	return fmt.Sprintf("%s: peak %s, gain %s, size %s",
		res.Path, res.Peak, gain, humanize.IBytes(uint64(res.Size)))
}
