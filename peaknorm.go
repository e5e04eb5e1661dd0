package peaknorm

import (
	"context"
	"strconv"
)

const (
	// DefaultThreshold is the peak level at or above which a file is left alone.
	// ffmpeg's volumedetect is approximate, so we aim a bit below 0 dB to avoid
	// clipping.
	DefaultThreshold Decibel = -0.5
	// DefaultMargin is how far below full scale the peak ends up after
	// amplification
	DefaultMargin Decibel = 0.5
)

// Decibel is a level or gain in dB relative to full scale
type Decibel float64

func (d Decibel) String() string {
	return strconv.FormatFloat(float64(d), 'f', -1, 64) + " dB"
}

// Policy decides if and by how much a file should be amplified
type Policy struct {
	// Threshold is the lowest peak that does not need correction
	Threshold Decibel
	// Margin is the headroom left below 0 dB after amplification
	Margin Decibel
}

// DefaultPolicy returns the policy with DefaultThreshold and DefaultMargin
func DefaultPolicy() Policy {
	return Policy{
		Threshold: DefaultThreshold,
		Margin:    DefaultMargin,
	}
}

// Decide returns the gain to apply to a file with the peak given, ok is false
// if the file does not need any amplification.
func (p Policy) Decide(peak Decibel) (gain Decibel, ok bool) {
	if peak >= p.Threshold {
		return 0, false
	}
	return -peak - p.Margin, true
}

// Result is the outcome of a single normalization run
type Result struct {
	// Path is the file that was normalized
	Path string
	// Peak is the measured peak amplitude before any change
	Peak Decibel
	// Gain is the gain that was (or would be) applied, zero if none
	Gain Decibel
	// Applied indicates the file at Path was replaced
	Applied bool
	// Size is the size in bytes of the file at Path after the run
	Size int64
}

// Analyzer measures the peak amplitude of an audio file
type Analyzer interface {
	MeasurePeak(ctx context.Context, path string) (Decibel, error)
}

// Transcoder writes a copy of src with the gain applied to dst
type Transcoder interface {
	ApplyGain(ctx context.Context, src, dst string, gain Decibel) error
}

// Tool is the combination of Analyzer and Transcoder, ffmpeg implements both
type Tool interface {
	Analyzer
	Transcoder
}
