// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	API      APIConfig               `yaml:"api"`
	Playback PlaybackConfig          `yaml:"playback"`
	Audio    AudioConfig             `yaml:"audio"`
	Store    StoreConfig             `yaml:"store"`
	Catalog  CatalogConfig           `yaml:"catalog"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// APIConfig represents RPC access configuration.
// An empty token disables the token check.
type APIConfig struct {
	Token string `yaml:"token"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	FadeDurationMs    int    `yaml:"fade_duration_ms" default:"400" validate:"gte=300,lte=500"`
	FadeStepMs        int    `yaml:"fade_step_ms" default:"50" validate:"gte=10,lte=100"`
	VolumePolicy      string `yaml:"volume_policy" default:"fade" validate:"oneof=fade instant"`
	EventBuffer       int    `yaml:"event_buffer" default:"64" validate:"gte=1"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms" default:"2000" validate:"gte=0,lte=60000"`
}

// AudioConfig represents audio output configuration.
type AudioConfig struct {
	Output          string `yaml:"output" default:"speaker" validate:"oneof=speaker null"`
	SampleRate      int    `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs        int    `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=1000"`
	ResampleQuality int    `yaml:"resample_quality" default:"4" validate:"gte=1,lte=6"`
	SoundDir        string `yaml:"sound_dir" default:"./sounds" validate:"required"`
}

// StoreConfig represents database configuration.
type StoreConfig struct {
	Driver       string `yaml:"driver" default:"sqlite" validate:"oneof=sqlite postgres mysql"`
	DSN          string `yaml:"dsn" default:"sleepmix.db" validate:"required"`
	MaxOpenConns int    `yaml:"max_open_conns" default:"10" validate:"gte=0"`
	MaxIdleConns int    `yaml:"max_idle_conns" default:"2" validate:"gte=0"`
	LogLevel     string `yaml:"log_level" default:"warn" validate:"oneof=silent error warn info"`
}

// CatalogConfig limits the mixes clients may store.
type CatalogConfig struct {
	MaxNameLength int `yaml:"max_name_length" default:"30" validate:"gte=1,lte=128"`
	MinSounds     int `yaml:"min_sounds" default:"2" validate:"gte=1"`
	MaxSounds     int `yaml:"max_sounds" validate:"gte=0"` // 0 means no limit
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success            string `yaml:"success" default:"OK"`
	DefaultError       string `yaml:"default_error" default:"Something went wrong"`
	MixNotFound        string `yaml:"mix_not_found"`
	NothingPlayable    string `yaml:"nothing_playable"`
	DuplicateTrack     string `yaml:"duplicate_track"`
	UnsupportedFormat  string `yaml:"unsupported_format"`
	TrackLimitExceeded string `yaml:"track_limit_exceeded"`
	TooFewTracks       string `yaml:"too_few_tracks"`
	TrackNotInMix      string `yaml:"track_not_in_mix"`
	InvalidBinding     string `yaml:"invalid_binding"`
	Unavailable        string `yaml:"resource_unavailable"`
	SoundNotFound      string `yaml:"sound_not_found"`
	SessionTerminated  string `yaml:"session_terminated"`
	InvalidMixName     string `yaml:"invalid_mix_name"`
	TooFewSounds       string `yaml:"too_few_sounds"`
	TooManySounds      string `yaml:"too_many_sounds"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SLEEPMIX_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("SLEEPMIX_DB_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("SLEEPMIX_SOUND_DIR"); v != "" {
		c.Audio.SoundDir = v
	}
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	var msg string
	switch code {
	case "success":
		msg = c.Messages.Success
	case "mix_not_found":
		msg = c.Messages.MixNotFound
	case "nothing_playable":
		msg = c.Messages.NothingPlayable
	case "duplicate_track":
		msg = c.Messages.DuplicateTrack
	case "unsupported_format":
		msg = c.Messages.UnsupportedFormat
	case "track_limit_exceeded":
		msg = c.Messages.TrackLimitExceeded
	case "too_few_tracks":
		msg = c.Messages.TooFewTracks
	case "track_not_in_mix":
		msg = c.Messages.TrackNotInMix
	case "invalid_binding":
		msg = c.Messages.InvalidBinding
	case "resource_unavailable":
		msg = c.Messages.Unavailable
	case "sound_not_found":
		msg = c.Messages.SoundNotFound
	case "session_terminated":
		msg = c.Messages.SessionTerminated
	case "invalid_mix_name":
		msg = c.Messages.InvalidMixName
	case "too_few_sounds":
		msg = c.Messages.TooFewSounds
	case "too_many_sounds":
		msg = c.Messages.TooManySounds
	}
	if msg == "" {
		return c.Messages.DefaultError
	}
	return msg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Playback.FadeStepMs > c.Playback.FadeDurationMs {
		return errors.Newf("fade_step_ms (%d) must not exceed fade_duration_ms (%d)",
			c.Playback.FadeStepMs, c.Playback.FadeDurationMs)
	}
	if c.Catalog.MaxSounds > 0 && c.Catalog.MinSounds > c.Catalog.MaxSounds {
		return errors.Newf("min_sounds (%d) must not exceed max_sounds (%d)",
			c.Catalog.MinSounds, c.Catalog.MaxSounds)
	}
	if c.Store.MaxOpenConns > 0 && c.Store.MaxIdleConns > c.Store.MaxOpenConns {
		return errors.Newf("max_idle_conns (%d) must not exceed max_open_conns (%d)",
			c.Store.MaxIdleConns, c.Store.MaxOpenConns)
	}

	return nil
}

// FadeDuration returns the fade duration.
func (c *Config) FadeDuration() time.Duration {
	return time.Duration(c.Playback.FadeDurationMs) * time.Millisecond
}

// FadeStep returns the interval between fade steps.
func (c *Config) FadeStep() time.Duration {
	return time.Duration(c.Playback.FadeStepMs) * time.Millisecond
}

// ShutdownTimeout returns how long shutdown waits for fades before forcing release.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Playback.ShutdownTimeoutMs) * time.Millisecond
}

// AudioBuffer returns the speaker buffer length.
func (c *Config) AudioBuffer() time.Duration {
	return time.Duration(c.Audio.BufferMs) * time.Millisecond
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok && f.Settings != nil {
		return f.Settings
	}
	return map[string]any{}
}
