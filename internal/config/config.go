// Package config loads the ambient YAML configuration that parameterizes a
// scheduler/audio-output session: sample rate, queue depth, default volume,
// playlist root and an optional lowpass cutoff. A missing file is not an
// error, it simply yields Defaults().
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the ambient tunables for a player session.
type Config struct {
	SampleRate    int     `yaml:"sample_rate"`
	QueueCapacity int     `yaml:"queue_capacity"`
	DefaultVolume float32 `yaml:"default_volume"`
	PlaylistRoot  string  `yaml:"playlist_root"`
	LowpassCutoff float32 `yaml:"lowpass_cutoff"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		SampleRate:    44100,
		QueueCapacity: 6,
		DefaultVolume: 1.0,
		PlaylistRoot:  ".",
		LowpassCutoff: 0,
	}
}

// Load reads and parses a YAML config file at path. A missing file returns
// Defaults() with no error; any other read or parse failure is returned.
// Fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
