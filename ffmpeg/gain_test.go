package ffmpeg

import (
	"context"
	"testing"

	"github.com/R-a-dio/peaknorm"
	"github.com/R-a-dio/peaknorm/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeFilter(t *testing.T) {
	gain, ok := peaknorm.DefaultPolicy().Decide(peaknorm.Decibel(-3.2))
	require.True(t, ok)
	assert.Equal(t, "volume=2.7dB", volumeFilter(gain))
	assert.Equal(t, "volume=10dB", volumeFilter(10))
	assert.Equal(t, "volume=0.125dB", volumeFilter(0.125))
}

func TestGainArgs(t *testing.T) {
	args := gainArgs("music/a b.mp3", "music/new.a b.mp3", "libmp3lame", peaknorm.Decibel(2.7))

	assert.Equal(t, []string{
		"-hide_banner",
		"-nostdin",
		"-nostats",
		"-loglevel", "error",
		"-y",
		"-i", "file:music/a b.mp3",
		"-write_xing", "0",
		"-af", "volume=2.7dB",
		"-c:a", "libmp3lame",
		"file:music/new.a b.mp3",
	}, args)
}

func TestApplyGainSameFile(t *testing.T) {
	tool := &Tool{Path: "ffmpeg-does-not-exist"}

	err := tool.ApplyGain(context.Background(), "a.mp3", "./a.mp3", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.InvalidArgument, err))
}
