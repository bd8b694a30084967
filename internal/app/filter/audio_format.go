package filter

import (
	"context"
	"slices"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sleepmix/internal/domain/mix"
	"github.com/osa030/sleepmix/internal/domain/sound"
)

// AudioFormatConfig represents the configuration for AudioFormatFilter.
type AudioFormatConfig struct {
	Formats []string `yaml:"formats" mapstructure:"formats" default:"[\"mp3\",\"wav\",\"flac\",\"ogg\"]" validate:"min=1,dive,oneof=mp3 wav flac ogg"`
}

// AudioFormatFilter checks if the track's resource has a playable format.
type AudioFormatFilter struct {
	formats []sound.Format
}

// NewAudioFormatFilter creates a new AudioFormatFilter accepting the given formats.
// No formats means every supported format.
func NewAudioFormatFilter(formats ...sound.Format) *AudioFormatFilter {
	return &AudioFormatFilter{formats: formats}
}

func (f *AudioFormatFilter) Name() string {
	return "audio_format_filter"
}

func (f *AudioFormatFilter) Description() string {
	return "Checks if the sound file has a supported (and allowed) audio format"
}

func (f *AudioFormatFilter) ReturnCodes() []string {
	return []string{"unsupported_format"}
}

func (f *AudioFormatFilter) ValidateConfig(settings map[string]any) error {
	var config AudioFormatConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}

	f.formats = make([]sound.Format, 0, len(config.Formats))
	for _, name := range config.Formats {
		f.formats = append(f.formats, sound.Format(name))
	}
	zlog.Info().Msgf("audio format filter config: %+v", config)
	return nil
}

func (f *AudioFormatFilter) AppliesTo(origin Origin) bool {
	// Format restrictions apply regardless of origin
	return true
}

func (f *AudioFormatFilter) Check(ctx context.Context, t mix.Track, m *mix.Mix) Result {
	format := sound.FormatOf(t.ResourceRef)
	if format == sound.FormatNone {
		return Reject("unsupported_format")
	}
	if len(f.formats) > 0 && !slices.Contains(f.formats, format) {
		return Reject("unsupported_format")
	}
	return Accept()
}

func init() {
	Register("audio_format_filter", func() Filter {
		return NewAudioFormatFilter()
	})
}
