package ffmpeg

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/R-a-dio/peaknorm"
	"github.com/R-a-dio/peaknorm/errors"
)

// volumeFilter returns the volume filter for gain, formatted with the
// shortest representation that round-trips
func volumeFilter(gain peaknorm.Decibel) string {
	return "volume=" + strconv.FormatFloat(float64(gain), 'f', -1, 64) + "dB"
}

func gainArgs(src, dst, encoder string, gain peaknorm.Decibel) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-nostats",
		"-loglevel", "error",
		"-y", // overwrite leftovers of an earlier interrupted run
		"-i", fileURL(src),
		// the xing header carries duration and bitrate hints that are
		// stale after re-encoding
		"-write_xing", "0",
		"-af", volumeFilter(gain),
		"-c:a", encoder,
		fileURL(dst),
	}
}

// ApplyGain re-encodes src with gain applied and writes the result to dst. The
// file at src is never modified.
func (t *Tool) ApplyGain(ctx context.Context, src, dst string, gain peaknorm.Decibel) error {
	const op errors.Op = "ffmpeg/Tool.ApplyGain"

	if filepath.Clean(src) == filepath.Clean(dst) {
		return errors.E(op, errors.InvalidArgument, errors.Path(src),
			errors.Info("source and destination are the same file"))
	}

	encoder := t.Encoder
	if encoder == "" {
		encoder = "libmp3lame"
	}

	_, err := t.run(ctx, op, src, gainArgs(src, dst, encoder, gain))
	return err
}
