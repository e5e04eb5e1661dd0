package ffmpeg

import (
	"context"
	"regexp"
	"strconv"

	"github.com/R-a-dio/peaknorm"
	"github.com/R-a-dio/peaknorm/errors"
)

// maxVolumeRe matches the peak line printed by the volumedetect filter, for
// example:
//
//	[Parsed_volumedetect_0 @ 0x5581cbe2c7c0] max_volume: -3.2 dB
var maxVolumeRe = regexp.MustCompile(`max_volume:[ \t]*(\S*)`)

// decibelRe is the only figure format accepted after max_volume:
var decibelRe = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

// ParseMaxVolume extracts the max_volume figure from volumedetect output. Any
// other content of output is ignored, ok is false if no figure was found.
//
// Only the last max_volume: in output counts. The filter summary is the last
// thing ffmpeg prints, anything before it (tags, file names) is input controlled.
func ParseMaxVolume(output string) (peak peaknorm.Decibel, ok bool) {
	all := maxVolumeRe.FindAllStringSubmatch(output, -1)
	if len(all) == 0 {
		return 0, false
	}
	figure := all[len(all)-1][1]
	if !decibelRe.MatchString(figure) {
		// -inf for silence, or something we don't understand
		return 0, false
	}

	v, err := strconv.ParseFloat(figure, 64)
	if err != nil {
		// unreachable, the regexp only matches valid floats
		return 0, false
	}
	return peaknorm.Decibel(v), true
}

func measureArgs(path string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-nostats",
		"-i", fileURL(path),
		"-af", "volumedetect",
		"-vn", "-sn", "-dn", // audio only
		"-f", "null",
		"-",
	}
}

// MeasurePeak decodes the file at path with the volumedetect filter and
// returns the peak amplitude it reports.
func (t *Tool) MeasurePeak(ctx context.Context, path string) (peaknorm.Decibel, error) {
	const op errors.Op = "ffmpeg/Tool.MeasurePeak"

	output, err := t.run(ctx, op, path, measureArgs(path))
	if err != nil {
		return 0, err
	}

	peak, ok := ParseMaxVolume(output)
	if !ok {
		return 0, errors.E(op, errors.PeakUnknown, errors.Path(path))
	}
	return peak, nil
}
