package normalizer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/R-a-dio/peaknorm"
	"github.com/R-a-dio/peaknorm/config"
	"github.com/R-a-dio/peaknorm/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Normalizer makes sure the peak amplitude of a file doesn't sit too far below
// full scale, replacing the file with an amplified copy if it does.
type Normalizer struct {
	// fs must see the same files as tool
	fs         afero.Fs
	tool       peaknorm.Tool
	policy     peaknorm.Policy
	tempPrefix string
	verify     bool
}

// New returns a Normalizer configured by cfg that uses tool to measure and
// amplify files and fs to replace them
func New(cfg config.Config, fs afero.Fs, tool peaknorm.Tool) *Normalizer {
	conf := cfg.Conf()
	return &Normalizer{
		fs:         fs,
		tool:       tool,
		policy:     conf.Policy(),
		tempPrefix: conf.TempPrefix,
		verify:     conf.VerifyOutput && IsMP3Encoder(conf.Encoder),
	}
}

// mp3Encoders are the ffmpeg encoders that produce mpeg audio frames
var mp3Encoders = map[string]bool{
	"libmp3lame": true,
	"libshine":   true,
	"mp3_mf":     true,
}

// IsMP3Encoder reports if encoder produces output that VerifyMP3 understands
func IsMP3Encoder(encoder string) bool {
	return mp3Encoders[encoder]
}

// TempPath returns the path the amplified copy of path is written to before
// it replaces path, it lives in the same directory as path
func (n *Normalizer) TempPath(path string) string {
	dir, file := filepath.Split(path)
	return filepath.Join(dir, n.tempPrefix+file)
}

// Measure measures the peak amplitude of path and the gain that Normalize
// would apply, without modifying anything
func (n *Normalizer) Measure(ctx context.Context, path string) (peaknorm.Result, error) {
	res, _, err := n.measure(ctx, path)
	if err != nil {
		return res, err
	}
	return res, n.stat(&res)
}

func (n *Normalizer) measure(ctx context.Context, path string) (peaknorm.Result, bool, error) {
	const op errors.Op = "normalizer/Normalizer.measure"

	res := peaknorm.Result{Path: path}
	if path == "" {
		return res, false, errors.E(op, errors.InvalidArgument, errors.Info("empty path"))
	}

	peak, err := n.tool.MeasurePeak(ctx, path)
	if err != nil {
		return res, false, errors.E(op, errors.Path(path), err)
	}
	res.Peak = peak

	zerolog.Ctx(ctx).Info().
		Str("path", path).
		Float64("peak", float64(peak)).
		Msgf("Current peak amplitude: %s", peak)

	gain, ok := n.policy.Decide(peak)
	res.Gain = gain
	return res, ok, nil
}

// Normalize measures the peak amplitude of the file at path and if it is below
// the policy threshold replaces the file with a copy amplified to just below
// full scale. The file is either fully replaced or left untouched.
func (n *Normalizer) Normalize(ctx context.Context, path string) (peaknorm.Result, error) {
	const op errors.Op = "normalizer/Normalizer.Normalize"

	res, ok, err := n.measure(ctx, path)
	if err != nil {
		return res, err
	}

	if !ok {
		zerolog.Ctx(ctx).Info().Str("path", path).Msg("peak within margin, nothing to do")
		return res, n.stat(&res)
	}

	zerolog.Ctx(ctx).Info().
		Str("path", path).
		Float64("gain", float64(res.Gain)).
		Msgf("Amplifying %s by %s...", path, res.Gain)

	tmp := n.TempPath(path)
	err = n.tool.ApplyGain(ctx, path, tmp, res.Gain)
	if err != nil {
		n.discard(ctx, tmp)
		return res, errors.E(op, errors.Path(path), err)
	}

	if n.verify {
		err = VerifyMP3(ctx, n.fs, tmp)
		if err != nil {
			n.discard(ctx, tmp)
			return res, errors.E(op, errors.Path(path), err)
		}
	}

	// rename is the only step that touches the original file
	err = n.fs.Rename(tmp, path)
	if err != nil {
		n.discard(ctx, tmp)
		return res, errors.E(op, errors.ReplaceFailed, errors.Path(path), err)
	}
	res.Applied = true

	return res, n.stat(&res)
}

// stat fills in the Size field of res
func (n *Normalizer) stat(res *peaknorm.Result) error {
	const op errors.Op = "normalizer/Normalizer.stat"

	fi, err := n.fs.Stat(res.Path)
	if err != nil {
		return errors.E(op, errors.Path(res.Path), err)
	}
	res.Size = fi.Size()
	return nil
}

// discard removes a temporary file that will not be promoted
func (n *Normalizer) discard(ctx context.Context, tmp string) {
	err := n.fs.Remove(tmp)
	if err != nil && !os.IsNotExist(err) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", tmp).Msg("failed to remove temporary file")
	}
}
