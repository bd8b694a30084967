package playback

import (
	"context"
	"time"
)

// Loader opens audio resources on the platform media API.
type Loader interface {
	// Open prepares a looping player for ref. It must not start playback.
	Open(ctx context.Context, ref string) (Player, error)
}

// Player is a platform audio player looping one resource.
// Implementations must be safe for concurrent use.
type Player interface {
	Play() error
	SetVolume(v float64)
	Playing() bool
	// Done delivers nil when playback completed on its own, or the platform error.
	Done() <-chan error
	// Close stops playback and frees the handle.
	Close() error
}

// VolumeSink receives new target volumes for persistence.
// mixID is the owning mix of the track when the change was made.
// Called on its own goroutine; the controller never waits for it.
type VolumeSink interface {
	PersistVolume(mixID, trackID string, volume float64)
}

// Recorder receives playback observations (metrics).
type Recorder interface {
	SlotAcquired()
	SlotReleased()
	TrackFailed(reason string)
	FadeStarted(direction string)
	FadeCancelled()
}

// Failure reasons reported to Recorder.TrackFailed.
const (
	ReasonUnavailable = "unavailable"
	ReasonPlatform    = "platform_error"
	ReasonCompleted   = "completed"
	ReasonDuplicate   = "duplicate"
)

// Fade directions reported to Recorder.FadeStarted.
const (
	FadeIn  = "in"
	FadeOut = "out"
)

type nopRecorder struct{}

func (nopRecorder) SlotAcquired()      {}
func (nopRecorder) SlotReleased()      {}
func (nopRecorder) TrackFailed(string) {}
func (nopRecorder) FadeStarted(string) {}
func (nopRecorder) FadeCancelled()     {}

// Handle is a scheduled task that can be cancelled.
type Handle interface {
	// Cancel prevents the task from running. Returns false if it already ran or was cancelled.
	Cancel() bool
}

// Scheduler runs functions after a delay.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Handle
}

type timerScheduler struct{}

// NewTimerScheduler returns a Scheduler backed by runtime timers.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(delay time.Duration, fn func()) Handle {
	return &timerHandle{timer: time.AfterFunc(delay, fn)}
}

type timerHandle struct {
	timer *time.Timer
}

func (h *timerHandle) Cancel() bool {
	return h.timer.Stop()
}
