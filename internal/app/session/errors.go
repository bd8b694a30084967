package session

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sleepmix/internal/app/playback"
	"github.com/osa030/sleepmix/internal/app/session/registry"
	"github.com/osa030/sleepmix/internal/domain/mix"
	"github.com/osa030/sleepmix/internal/domain/sound"
)

var (
	ErrSessionTerminated = errors.New("session is terminated")
	ErrNoMix             = errors.New("no mix is playing")
)

// RejectionError reports a track refused by a filter.
type RejectionError struct {
	Filter string
	Code   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rejected by %s: %s", e.Filter, e.Code)
}

// ErrorCode maps an error to the message code shown to clients.
func ErrorCode(err error) string {
	if err == nil {
		return "success"
	}

	var rej *RejectionError
	switch {
	case errors.As(err, &rej):
		return rej.Code
	case errors.Is(err, ErrSessionTerminated):
		return "session_terminated"
	case errors.Is(err, mix.ErrMixNotFound):
		return "mix_not_found"
	case errors.Is(err, mix.ErrInvalidName):
		return "invalid_mix_name"
	case errors.Is(err, mix.ErrTooFewSounds):
		return "too_few_sounds"
	case errors.Is(err, mix.ErrTooManySounds):
		return "too_many_sounds"
	case errors.Is(err, sound.ErrSoundNotFound):
		return "sound_not_found"
	case errors.Is(err, playback.ErrNothingPlayable):
		return "nothing_playable"
	case errors.Is(err, playback.ErrDuplicateTrack):
		return "duplicate_track"
	case errors.Is(err, playback.ErrTrackNotInMix), errors.Is(err, ErrNoMix), errors.Is(err, mix.ErrTrackNotFound):
		return "track_not_in_mix"
	case errors.Is(err, playback.ErrResourceUnavailable):
		return "resource_unavailable"
	case errors.Is(err, registry.ErrInvalidBinding):
		return "invalid_binding"
	default:
		return "default_error"
	}
}
