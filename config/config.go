package config

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/R-a-dio/peaknorm"
	"github.com/R-a-dio/peaknorm/errors"
)

// config represents a full configuration file of this project
type config struct {
	// FFmpegPath is the ffmpeg executable to use, looked up in PATH if it
	// contains no path separators
	FFmpegPath string
	// Threshold is the peak level in dB at or above which a file is left alone
	Threshold float64
	// Margin is the headroom in dB left below full scale after amplification
	Margin float64
	// TempPrefix is prepended to the file name of the input to create the
	// temporary output path, the temporary file lives next to the input
	TempPrefix string
	// Encoder is the ffmpeg audio encoder used for the amplified output. It
	// should produce the same format as the input since the output replaces it
	// under the same name
	Encoder string
	// Timeout is the maximum duration of a single run, zero means no limit
	Timeout Duration
	// VerifyOutput checks the amplified output for mp3 frames before it
	// replaces the input, it has no effect if Encoder is not an mp3 encoder
	VerifyOutput bool

	Telemetry telemetry
}

// telemetry configures tracing of ffmpeg runs
type telemetry struct {
	// Use enables tracing, the -telemetry flag does the same
	Use bool
	// Output is the file finished spans are appended to as JSON, standard
	// error is used if empty
	Output string
}

// Policy returns the normalization policy described by the configuration
func (c config) Policy() peaknorm.Policy {
	return peaknorm.Policy{
		Threshold: peaknorm.Decibel(c.Threshold),
		Margin:    peaknorm.Decibel(c.Margin),
	}
}

// Config is a type-safe wrapper around the config type
type Config struct {
	config *atomic.Value
}

// Default returns a Config filled with the default configuration
func Default() Config {
	var ac = Config{new(atomic.Value)}
	ac.StoreConf(defaultConfig)
	return ac
}

// LoadFile loads a configuration file from the first filename given that
// exists, empty filenames are skipped. The default configuration is returned
// if none of the files exist.
func LoadFile(filenames ...string) (Config, error) {
	const op errors.Op = "config.LoadFile"

	for _, filename := range filenames {
		if filename == "" {
			continue
		}

		f, err := os.Open(filename)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Config{}, errors.E(op, errors.Path(filename), err)
		}
		defer f.Close()

		cfg, err := Load(f)
		if err != nil {
			return Config{}, errors.E(op, errors.Path(filename), err)
		}
		return cfg, nil
	}

	return Default(), nil
}

// Load loads a configuration file from the reader given, it expects TOML as input
func Load(r io.Reader) (Config, error) {
	const op errors.Op = "config.Load"

	var c = defaultConfig
	m, err := toml.DecodeReader(r, &c)
	if err != nil {
		return Config{}, errors.E(op, errors.InvalidArgument, err)
	}

	// keys that were found but don't have a destination are most likely typos
	undec := m.Undecoded()
	if len(undec) > 0 {
		keys := make([]string, 0, len(undec))
		for _, k := range undec {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return Config{}, errors.E(op, errors.InvalidArgument,
			errors.Info("unknown keys: "+strings.Join(keys, ", ")))
	}

	if c.TempPrefix == "" || strings.ContainsAny(c.TempPrefix, `/\`) {
		return Config{}, errors.E(op, errors.InvalidArgument,
			errors.Info("TempPrefix must be a non-empty file name prefix"))
	}

	var ac = Config{new(atomic.Value)}
	ac.StoreConf(c)

	return ac, nil
}

// Conf returns the configuration stored inside
func (c Config) Conf() config {
	return c.config.Load().(config)
}

// StoreConf stores the configuration passed
func (c Config) StoreConf(new config) {
	c.config.Store(new)
}

// Save writes the configuration to w in TOML format
func (c Config) Save(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c.Conf())
}
