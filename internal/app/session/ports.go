package session

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sleepmix/internal/app/playback"
	"github.com/osa030/sleepmix/internal/domain/mix"
)

// MixSource resolves a mix with its tracks in one consistent read.
// A missing mix is reported as mix.ErrMixNotFound.
type MixSource interface {
	ResolveMix(ctx context.Context, mixID string) (*mix.Mix, error)
}

// VolumeStore persists a track's volume.
type VolumeStore interface {
	UpdateTrackVolume(ctx context.Context, mixID, trackID string, volume float64) error
}

// Host receives the playing/idle indication.
// Background is raised only after every player has been released.
type Host interface {
	Foreground(mixName string)
	Background()
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	store     VolumeStore
	host      Host
	recorder  playback.Recorder
	scheduler playback.Scheduler
}

// WithVolumeStore sets where volume changes are persisted.
func WithVolumeStore(s VolumeStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithHost sets the receiver of host signals.
func WithHost(h Host) Option {
	return func(o *options) {
		o.host = h
	}
}

// WithRecorder sets the playback metrics recorder.
func WithRecorder(r playback.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithScheduler replaces the timer-backed fade scheduler.
func WithScheduler(s playback.Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

type logHost struct{}

func (logHost) Foreground(mixName string) {
	zlog.Info().Msgf("host: foreground: mix=%s", mixName)
}

func (logHost) Background() {
	zlog.Info().Msg("host: background")
}
