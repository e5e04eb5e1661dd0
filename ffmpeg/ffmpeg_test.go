package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/R-a-dio/peaknorm"
	"github.com/R-a-dio/peaknorm/config"
	"github.com/R-a-dio/peaknorm/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// fakeFFmpeg writes a shell script standing in for ffmpeg into a temporary
// directory. The script records its arguments, one per line, in a file
// named args next to it before running body.
func fakeFFmpeg(t *testing.T, body string) (tool *Tool, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg needs a posix shell")
	}

	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > '" + argsFile + "'\n" + body + "\n"

	path := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	return &Tool{Path: path, Encoder: "libmp3lame"}, argsFile
}

func readArgs(t *testing.T, argsFile string) []string {
	t.Helper()
	b, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func testCtx(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func TestNew(t *testing.T) {
	tool := New(config.Default())
	assert.Equal(t, "ffmpeg", tool.Path)
	assert.Equal(t, "libmp3lame", tool.Encoder)
}

func TestMeasurePeak(t *testing.T) {
	ctx := testCtx(t)

	t.Run("success", func(t *testing.T) {
		tool, argsFile := fakeFFmpeg(t, `cat >&2 <<'EOF'
[Parsed_volumedetect_0 @ 0x55d5c] n_samples: 1323000
[Parsed_volumedetect_0 @ 0x55d5c] mean_volume: -20.1 dB
[Parsed_volumedetect_0 @ 0x55d5c] max_volume: -3.2 dB
EOF`)

		// quotes and shell metacharacters must reach ffmpeg as a single argument
		path := `it's a "song"; $(rm -rf x).mp3`
		peak, err := tool.MeasurePeak(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, peaknorm.Decibel(-3.2), peak)

		assert.Equal(t, measureArgs(path), readArgs(t, argsFile))
	})

	t.Run("non-zero exit", func(t *testing.T) {
		tool, _ := fakeFFmpeg(t, `echo "song.mp3: No such file or directory" >&2; exit 1`)

		_, err := tool.MeasurePeak(ctx, "song.mp3")
		require.Error(t, err)
		assert.True(t, errors.Is(errors.ExternalTool, err))

		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr))
		assert.Contains(t, toolErr.Stderr, "No such file or directory")
		assert.Equal(t, measureArgs("song.mp3"), toolErr.Args)
	})

	t.Run("missing marker", func(t *testing.T) {
		tool, _ := fakeFFmpeg(t, `echo "[Parsed_volumedetect_0 @ 0x1] mean_volume: -20.1 dB" >&2`)

		_, err := tool.MeasurePeak(ctx, "song.mp3")
		require.Error(t, err)
		assert.True(t, errors.Is(errors.PeakUnknown, err))
	})

	t.Run("missing executable", func(t *testing.T) {
		tool := &Tool{Path: filepath.Join(t.TempDir(), "no-ffmpeg-here")}

		_, err := tool.MeasurePeak(ctx, "song.mp3")
		require.Error(t, err)
		assert.True(t, errors.Is(errors.ExternalTool, err))
	})

	t.Run("canceled", func(t *testing.T) {
		tool, _ := fakeFFmpeg(t, `exec sleep 10`)

		ctx, cancel := context.WithTimeout(ctx, time.Millisecond*100)
		defer cancel()

		_, err := tool.MeasurePeak(ctx, "song.mp3")
		require.Error(t, err)
		assert.False(t, errors.Is(errors.ExternalTool, err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestApplyGain(t *testing.T) {
	ctx := testCtx(t)

	t.Run("success", func(t *testing.T) {
		tool, argsFile := fakeFFmpeg(t, `for last; do :; done
printf 'amplified' > "${last#file:}"`)

		dir := t.TempDir()
		src := filepath.Join(dir, "song.mp3")
		dst := filepath.Join(dir, "new.song.mp3")
		require.NoError(t, os.WriteFile(src, []byte("original"), 0o644))

		err := tool.ApplyGain(ctx, src, dst, 2.7)
		require.NoError(t, err)

		out, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "amplified", string(out))

		in, err := os.ReadFile(src)
		require.NoError(t, err)
		assert.Equal(t, "original", string(in))

		assert.Equal(t, gainArgs(src, dst, "libmp3lame", 2.7), readArgs(t, argsFile))
	})

	t.Run("non-zero exit", func(t *testing.T) {
		tool, _ := fakeFFmpeg(t, `echo "Unknown encoder 'libmp3lame'" >&2; exit 1`)

		err := tool.ApplyGain(ctx, "song.mp3", "new.song.mp3", 2.7)
		require.Error(t, err)
		assert.True(t, errors.Is(errors.ExternalTool, err))

		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr))
		assert.Contains(t, toolErr.Stderr, "Unknown encoder")
	})
}

func TestRunTraced(t *testing.T) {
	ctx := testCtx(t)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	ok, _ := fakeFFmpeg(t, `echo "[Parsed_volumedetect_0 @ 0x1] max_volume: -3.2 dB" >&2`)
	_, err := ok.MeasurePeak(ctx, "song.mp3")
	require.NoError(t, err)

	failing, _ := fakeFFmpeg(t, `exit 1`)
	_, err = failing.MeasurePeak(ctx, "song.mp3")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "ffmpeg/Tool.MeasurePeak", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("path", "song.mp3"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.NotEmpty(t, spans[1].Events(), "error should be recorded on the span")
}
