package playback

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/osa030/sleepmix/internal/domain/mix"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrResourceUnavailable = errors.New("audio resource unavailable")
	ErrSlotReleased        = errors.New("slot already released")
)

// slotEventBuffer covers one SlotStarted plus one terminal event.
const slotEventBuffer = 4

// Slot owns one platform player bound to one track.
type Slot struct {
	mu sync.Mutex

	trackID string
	ref     string
	player  Player

	volume   float64  // Instantaneous volume
	fade     *FadeJob // In-flight fade (at most one)
	started  bool
	released bool

	events chan SlotEvent
	done   chan struct{}
	once   sync.Once
}

// Acquire opens the track's resource and returns a slot holding the player.
// Every failure, including a panicking loader, is returned marked with ErrResourceUnavailable.
func Acquire(ctx context.Context, loader Loader, t mix.Track) (*Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "acquire track %s", t.ID), ErrResourceUnavailable)
	}

	p, err := openPlayer(ctx, loader, t.ResourceRef)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "acquire track %s (ref=%s)", t.ID, t.ResourceRef), ErrResourceUnavailable)
	}
	if p == nil {
		return nil, errors.Wrapf(ErrResourceUnavailable, "acquire track %s: loader returned no player", t.ID)
	}

	return &Slot{
		trackID: t.ID,
		ref:     t.ResourceRef,
		player:  p,
		events:  make(chan SlotEvent, slotEventBuffer),
		done:    make(chan struct{}),
	}, nil
}

func openPlayer(ctx context.Context, loader Loader, ref string) (p Player, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = errors.Newf("loader panic: %v", r)
		}
	}()

	p, err = loader.Open(ctx, ref)
	if err != nil && p != nil {
		if cerr := p.Close(); cerr != nil {
			zlog.Warn().Err(cerr).Msgf("playback: failed to close partially opened player: ref=%s", ref)
		}
		p = nil
	}
	return p, err
}

// TrackID returns the identity of the track this slot plays.
func (s *Slot) TrackID() string {
	return s.trackID
}

// Start starts looped playback at volume 0.
func (s *Slot) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrSlotReleased
	}
	if s.started {
		return nil
	}

	s.volume = 0
	s.player.SetVolume(0)
	if err := s.player.Play(); err != nil {
		return errors.Mark(errors.Wrapf(err, "start track %s", s.trackID), ErrResourceUnavailable)
	}
	s.started = true
	s.emitLocked(SlotEvent{Type: SlotStarted, TrackID: s.trackID})

	go s.watch()
	return nil
}

// SetInstantVolume clamps v to [0,1] and applies it immediately.
func (s *Slot) SetInstantVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrSlotReleased
	}
	s.setVolumeLocked(mix.ClampVolume(v))
	return nil
}

// Volume returns the instantaneous volume.
func (s *Slot) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// IsActive returns true while the player is producing sound and the slot is not released.
func (s *Slot) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.released && s.player.Playing()
}

// Fading returns true while a fade job owns the slot's volume.
func (s *Slot) Fading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fade != nil
}

// Events returns the lifecycle stream. Closed on release.
func (s *Slot) Events() <-chan SlotEvent {
	return s.events
}

// CancelFade cancels the in-flight fade, if any.
func (s *Slot) CancelFade() bool {
	s.mu.Lock()
	job := s.fade
	s.fade = nil
	s.mu.Unlock()

	if job == nil {
		return false
	}
	return job.Cancel()
}

// Release stops and frees the player. Safe to call any number of times.
func (s *Slot) Release() {
	s.once.Do(func() {
		s.mu.Lock()
		s.released = true
		job := s.fade
		s.fade = nil
		close(s.done)
		close(s.events)
		s.mu.Unlock()

		if job != nil {
			job.Cancel()
		}
		if err := s.player.Close(); err != nil {
			zlog.Warn().Err(err).Msgf("playback: failed to close player: track=%s", s.trackID)
		}
	})
}

// beginFade installs job as the slot's fade and returns the starting volume and the replaced job.
func (s *Slot) beginFade(job *FadeJob) (from float64, prev *FadeJob, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return 0, nil, ErrSlotReleased
	}
	prev = s.fade
	s.fade = job
	return s.volume, prev, nil
}

// applyFadeStep writes v if job still owns the slot. Stale steps return false.
func (s *Slot) applyFadeStep(job *FadeJob, v float64, last bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return false, ErrSlotReleased
	}
	if s.fade != job {
		return false, nil
	}
	s.setVolumeLocked(v)
	if last {
		s.fade = nil
	}
	return true, nil
}

func (s *Slot) setVolumeLocked(v float64) {
	s.volume = v
	s.player.SetVolume(v)
}

// emitLocked sends without blocking. Must be called with lock held.
func (s *Slot) emitLocked(e SlotEvent) {
	if s.released {
		return
	}
	select {
	case s.events <- e:
	default:
		zlog.Warn().Msgf("playback: slot event dropped: track=%s type=%s", s.trackID, e.Type)
	}
}

func (s *Slot) watch() {
	select {
	case err, ok := <-s.player.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil && ok {
			s.emitLocked(SlotEvent{Type: SlotFailed, TrackID: s.trackID, Err: err})
		} else {
			s.emitLocked(SlotEvent{Type: SlotCompleted, TrackID: s.trackID})
		}
	case <-s.done:
	}
}
