// Package ffmpeg runs the ffmpeg executable to measure and amplify audio
// files. All invocations pass their arguments as an argument vector, no shell
// is ever involved.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/R-a-dio/peaknorm"
	"github.com/R-a-dio/peaknorm/config"
	"github.com/R-a-dio/peaknorm/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var _ peaknorm.Tool = (*Tool)(nil)

// Tool is an ffmpeg executable
type Tool struct {
	// Path is the executable to run
	Path string
	// Encoder is the audio encoder used by ApplyGain
	Encoder string
}

// New returns a Tool configured from cfg
func New(cfg config.Config) *Tool {
	conf := cfg.Conf()
	return &Tool{
		Path:    conf.FFmpegPath,
		Encoder: conf.Encoder,
	}
}

// ToolError is returned when ffmpeg exits with a non-zero status or could not
// be started at all
//
// The Stderr field contains everything ffmpeg wrote to stderr.
type ToolError struct {
	Args   []string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s", e.Err.Error())
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// run executes ffmpeg with the arguments given and returns what it wrote
// to stderr, which is where ffmpeg writes all of its diagnostics.
func (t *Tool) run(ctx context.Context, op errors.Op, path string, args []string) (string, error) {
	ctx, span := otel.Tracer("ffmpeg").Start(ctx, string(op))
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("path", path),
			attribute.String("args", strings.Join(args, " ")),
		)
	}
	defer span.End()

	zerolog.Ctx(ctx).Debug().Str("path", path).Strs("args", args).Msg("running ffmpeg")

	cmd := exec.CommandContext(ctx, t.Path, args...)
	// we throw stdout away, but supply a buffer to be sure
	cmd.Stdout = new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return stderr.String(), nil
	}

	span.SetStatus(codes.Error, "ffmpeg failed")
	span.RecordError(err)

	if ctx.Err() != nil {
		// we were asked to stop, ffmpeg didn't fail on its own
		return stderr.String(), errors.E(op, errors.Path(path), ctx.Err())
	}

	return stderr.String(), errors.E(op, errors.ExternalTool, errors.Path(path), &ToolError{
		Args:   args,
		Err:    err,
		Stderr: stderr.String(),
	})
}

// fileURL forces ffmpeg to treat path as a local file, even if it looks like
// an url or another protocol such as pipe:
func fileURL(path string) string {
	return "file:" + path
}
