package normalizer

import (
	"bufio"
	"context"
	"time"

	"github.com/R-a-dio/peaknorm/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/tcolgate/mp3"
)

// VerifyMP3 checks that the file at path contains mpeg audio frames, it
// returns an InvalidOutput error if it doesn't
func VerifyMP3(ctx context.Context, fs afero.Fs, path string) error {
	const op errors.Op = "normalizer/VerifyMP3"

	f, err := fs.Open(path)
	if err != nil {
		return errors.E(op, errors.InvalidOutput, errors.Path(path), err)
	}
	defer f.Close()

	frames, length := countFrames(bufio.NewReader(f))
	if frames == 0 {
		return errors.E(op, errors.InvalidOutput, errors.Path(path),
			errors.Info("no mp3 frames found"))
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Int("frames", frames).
		Dur("length", length).
		Msg("verified output")
	return nil
}

// countFrames decodes frames until the decoder gives up, which is either at
// the end of the data or at a truncated trailing frame
func countFrames(r *bufio.Reader) (frames int, length time.Duration) {
	dec := mp3.NewDecoder(r)

	var frame mp3.Frame
	var skipped int
	for dec.Decode(&frame, &skipped) == nil {
		frames++
		length += frame.Duration()
	}
	return frames, length
}
