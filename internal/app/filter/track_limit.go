package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sleepmix/internal/domain/mix"
)

// TrackLimitConfig represents the configuration for TrackLimitFilter.
type TrackLimitConfig struct {
	MinTracks int `yaml:"min_tracks" mapstructure:"min_tracks" default:"1" validate:"gte=1"`
	MaxTracks int `yaml:"max_tracks" mapstructure:"max_tracks" validate:"gte=0"`
}

// TrackLimitFilter keeps the number of tracks of a mix within limits.
// Tracks past MaxTracks are rejected; a mix smaller than MinTracks is rejected entirely.
type TrackLimitFilter struct {
	config *TrackLimitConfig
}

// NewTrackLimitFilter creates a new track limit filter.
func NewTrackLimitFilter() *TrackLimitFilter {
	return &TrackLimitFilter{}
}

func (f *TrackLimitFilter) Name() string {
	return "track_limit_filter"
}

func (f *TrackLimitFilter) Description() string {
	return "Checks if the number of tracks in a mix is within allowed limits"
}

func (f *TrackLimitFilter) ReturnCodes() []string {
	return []string{"too_few_tracks", "track_limit_exceeded"}
}

func (f *TrackLimitFilter) ValidateConfig(settings map[string]any) error {
	var config TrackLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}

	// max_tracks of 0 means no limit
	if config.MaxTracks > 0 && config.MinTracks > config.MaxTracks {
		return errors.New("min_tracks cannot be greater than max_tracks")
	}
	f.config = &config
	zlog.Info().Msgf("track limit filter config: %+v", config)
	return nil
}

func (f *TrackLimitFilter) AppliesTo(origin Origin) bool {
	// Toggling only re-enables a track that was already counted
	return origin == OriginMix
}

func (f *TrackLimitFilter) Check(ctx context.Context, t mix.Track, m *mix.Mix) Result {
	// If config is not set, accept all tracks
	if f.config == nil {
		return Accept()
	}

	if len(m.Tracks) < f.config.MinTracks {
		return Reject("too_few_tracks")
	}

	if f.config.MaxTracks > 0 {
		for i, other := range m.Tracks {
			if other.ID == t.ID {
				if i >= f.config.MaxTracks {
					return Reject("track_limit_exceeded")
				}
				break
			}
		}
	}

	return Accept()
}

func init() {
	Register("track_limit_filter", func() Filter {
		return &TrackLimitFilter{}
	})
}
