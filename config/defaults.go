package config

import "github.com/R-a-dio/peaknorm"

// defaultConfig is the default configuration for this project
var defaultConfig = config{
	FFmpegPath:   "ffmpeg",
	Threshold:    float64(peaknorm.DefaultThreshold),
	Margin:       float64(peaknorm.DefaultMargin),
	TempPrefix:   "new.",
	Encoder:      "libmp3lame",
	Timeout:      0,
	VerifyOutput: true,
	Telemetry: telemetry{
		Use:    false,
		Output: "",
	},
}
