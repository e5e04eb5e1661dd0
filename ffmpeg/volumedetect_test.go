package ffmpeg

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/R-a-dio/peaknorm"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

const volumedetectOutput = `Input #0, mp3, from 'file:song.mp3':
  Metadata:
    title           : Some Song
  Duration: 00:03:21.42, start: 0.025057, bitrate: 320 kb/s
  Stream #0:0: Audio: mp3, 44100 Hz, stereo, fltp, 320 kb/s
Stream mapping:
  Stream #0:0 -> #0:0 (mp3 (mp3float) -> pcm_s16le (native))
Output #0, null, to 'pipe:':
  Stream #0:0: Audio: pcm_s16le, 44100 Hz, stereo, s16, 1411 kb/s
size=N/A time=00:03:21.40 bitrate=N/A speed= 412x
[Parsed_volumedetect_0 @ 0x5581cbe2c7c0] n_samples: 17763840
[Parsed_volumedetect_0 @ 0x5581cbe2c7c0] mean_volume: -17.4 dB
[Parsed_volumedetect_0 @ 0x5581cbe2c7c0] max_volume: -3.2 dB
[Parsed_volumedetect_0 @ 0x5581cbe2c7c0] histogram_3db: 12
[Parsed_volumedetect_0 @ 0x5581cbe2c7c0] histogram_4db: 131
`

func TestParseMaxVolume(t *testing.T) {
	cases := []struct {
		name   string
		output string
		peak   peaknorm.Decibel
		ok     bool
	}{
		{"full output", volumedetectOutput, -3.2, true},
		{"zero peak", "max_volume: 0.0 dB", 0, true},
		{"positive peak", "max_volume: 1.5 dB", 1.5, true},
		{"integer peak", "max_volume: -12 dB", -12, true},
		{"extra whitespace", "max_volume:   -7.25 dB", -7.25, true},
		{"silent file", "max_volume: -inf dB", 0, false},
		{"no marker", "mean_volume: -17.4 dB\nn_samples: 0\n", 0, false},
		{"empty", "", 0, false},
		{"garbage", "\x00\xff max_volume", 0, false},
		{"tag before summary", "    title           : max_volume: -60.0 dB\n" +
			"[Parsed_volumedetect_0 @ 0x1] max_volume: -3.2 dB\n", -3.2, true},
		{"file name before summary", "Input #0, mp3, from 'file:max_volume: -60.0 dB.mp3':\n" +
			volumedetectOutput, -3.2, true},
		{"tag before silent file", "    comment         : max_volume: -60.0 dB\n" +
			"[Parsed_volumedetect_0 @ 0x1] max_volume: -inf dB\n", 0, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			peak, ok := ParseMaxVolume(c.output)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.peak, peak)
		})
	}
}

func TestParseMaxVolumeProperties(t *testing.T) {
	p := gopter.NewProperties(nil)

	p.Property("roundtrip of volumedetect line", prop.ForAll(
		func(peak float64, noise string) bool {
			printed := strconv.FormatFloat(peak, 'f', 1, 64)
			want, _ := strconv.ParseFloat(printed, 64)

			line := fmt.Sprintf("%s\n[Parsed_volumedetect_0 @ 0x1] max_volume: %s dB\n", noise, printed)
			got, ok := ParseMaxVolume(line)
			return ok && float64(got) == want
		},
		gen.Float64Range(-99, 0),
		gen.AlphaString(),
	))

	p.Property("no marker never parses", prop.ForAll(
		func(noise string) bool {
			_, ok := ParseMaxVolume(noise)
			return !ok
		},
		gen.AlphaString(),
	))

	p.TestingRun(t)
}

func TestMeasureArgs(t *testing.T) {
	args := measureArgs(`it's a "song".mp3`)

	assert.Contains(t, args, `file:it's a "song".mp3`)
	assert.Contains(t, args, "volumedetect")
	assert.Equal(t, "-", args[len(args)-1])
}
