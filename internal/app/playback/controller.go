package playback

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/osa030/sleepmix/internal/domain/mix"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrTrackNotInMix    = errors.New("track not in current mix")
	ErrNothingPlayable  = errors.New("no track of the mix could be played")
	ErrDuplicateTrack   = errors.New("duplicate track in mix")
	ErrControllerClosed = errors.New("controller closed")
)

const defaultEventBuffer = 32

// Config holds controller configuration.
type Config struct {
	FadeDuration time.Duration // Length of every fade
	FadeStep     time.Duration // Interval between fade steps
	VolumePolicy VolumePolicy  // How SetTrackVolume applies a new target
	EventBuffer  int           // Event channel capacity
}

// TrackFailure reports a track that could not be started.
type TrackFailure struct {
	TrackID string
	Err     error
}

// Result reports what PlayMix did per track.
type Result struct {
	Started    []string       // Newly started or revived tracks
	Retargeted []string       // Already sounding, fading to a new target
	Unchanged  []string       // Already sounding at the requested target
	Stopped    []string       // Sounding tracks absent from the request
	Failed     []TrackFailure // Tracks that could not be started
}

// Playing returns the number of requested tracks now sounding.
func (r *Result) Playing() int {
	return len(r.Started) + len(r.Retargeted) + len(r.Unchanged)
}

// TrackStatus is a point-in-time view of one track of the current mix.
type TrackStatus struct {
	TrackID      string
	Name         string
	TargetVolume float64
	Volume       float64 // Instantaneous volume (0 when silent)
	Playing      bool
	Fading       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces the timer-backed scheduler used for fades.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.sched = s
	}
}

// WithVolumeSink sets the receiver of persisted volume changes.
func WithVolumeSink(sink VolumeSink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Controller reconciles requested mixes against sounding slots.
// It is the only owner of slots; every slot mutation happens under its lock.
type Controller struct {
	mu sync.Mutex

	config   Config
	loader   Loader
	sched    Scheduler
	fader    *FadeScheduler
	sink     VolumeSink
	recorder Recorder

	// Most recently requested mix
	order  []string
	tracks map[string]mix.Track

	// Slots
	slots    map[string]*Slot // Sounding (or fading in)
	draining map[string]*Slot // Fading out, released on completion

	state  State
	idleCh chan struct{} // Closed while no slot is held
	idle   bool

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewController creates a new playback controller.
func NewController(config Config, loader Loader, opts ...Option) *Controller {
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}
	if config.VolumePolicy == "" {
		config.VolumePolicy = VolumePolicyFade
	}

	ctx, cancel := context.WithCancel(context.Background())
	idleCh := make(chan struct{})
	close(idleCh)

	c := &Controller{
		config:   config,
		loader:   loader,
		recorder: nopRecorder{},
		tracks:   make(map[string]mix.Track),
		slots:    make(map[string]*Slot),
		draining: make(map[string]*Slot),
		state:    StateIdle,
		idleCh:   idleCh,
		idle:     true,
		eventCh:  make(chan Event, config.EventBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sched == nil {
		c.sched = NewTimerScheduler()
	}
	c.fader = NewFadeScheduler(c.sched, FadePolicy{Duration: config.FadeDuration, Step: config.FadeStep}, c.recorder)
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// FadePolicy returns the fade timing in use.
func (c *Controller) FadePolicy() FadePolicy {
	return c.fader.Policy()
}

// PlayMix reconciles tracks against the sounding slots.
// Stops are issued before starts. Per-track failures are reported in the result and never abort
// the rest of the mix. Returns ErrNothingPlayable when tracks is non-empty and nothing sounds.
func (c *Controller) PlayMix(ctx context.Context, tracks []mix.Track) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrControllerClosed
	}

	res := &Result{}
	desired := make(map[string]mix.Track, len(tracks))
	order := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if _, dup := desired[t.ID]; dup {
			res.Failed = append(res.Failed, TrackFailure{
				TrackID: t.ID,
				Err:     errors.Wrapf(ErrDuplicateTrack, "track %s", t.ID),
			})
			c.recorder.TrackFailed(ReasonDuplicate)
			continue
		}
		t.TargetVolume = mix.ClampVolume(t.TargetVolume)
		desired[t.ID] = t
		order = append(order, t.ID)
	}

	// Stops first
	for _, id := range c.sortedSlotIDsLocked() {
		if _, ok := desired[id]; !ok {
			c.stopSlotLocked(id, c.slots[id])
			res.Stopped = append(res.Stopped, id)
		}
	}

	previous := c.tracks
	c.order = order
	c.tracks = desired

	for _, id := range order {
		t := desired[id]

		if s, ok := c.slots[id]; ok {
			if prev, had := previous[id]; had && prev.TargetVolume == t.TargetVolume {
				res.Unchanged = append(res.Unchanged, id)
				continue
			}
			c.fader.FadeTo(s, t.TargetVolume, nil)
			res.Retargeted = append(res.Retargeted, id)
			c.sendEventLocked(Event{Type: EventVolumeChanged, TrackID: id, Volume: t.TargetVolume, State: c.state})
			continue
		}

		if err := c.soundLocked(ctx, t); err != nil {
			res.Failed = append(res.Failed, TrackFailure{TrackID: id, Err: err})
			continue
		}
		res.Started = append(res.Started, id)
	}

	c.updateStateLocked()

	zlog.Debug().Msgf("playback: mix reconciled: started=%v retargeted=%v unchanged=%v stopped=%v failed=%d",
		res.Started, res.Retargeted, res.Unchanged, res.Stopped, len(res.Failed))

	if len(tracks) > 0 && len(c.slots) == 0 {
		return res, ErrNothingPlayable
	}
	return res, nil
}

// StopAll fades out and releases every sounding slot. Calling it while idle is a no-op.
func (c *Controller) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopAllLocked()
}

func (c *Controller) stopAllLocked() {
	for _, id := range c.sortedSlotIDsLocked() {
		c.stopSlotLocked(id, c.slots[id])
	}
	c.order = nil
	c.tracks = make(map[string]mix.Track)
	c.updateStateLocked()
}

// SetTrackVolume changes one track's target volume (clamped to [0,1]).
// The new value is handed to the volume sink without waiting for it.
func (c *Controller) SetTrackVolume(trackID string, volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}

	t, ok := c.tracks[trackID]
	if !ok {
		return errors.Wrapf(ErrTrackNotInMix, "track %s", trackID)
	}
	t = t.WithVolume(volume)
	c.tracks[trackID] = t

	if s, ok := c.slots[trackID]; ok {
		switch c.config.VolumePolicy {
		case VolumePolicyInstant:
			s.CancelFade()
			if err := s.SetInstantVolume(t.TargetVolume); err != nil && !errors.Is(err, ErrSlotReleased) {
				return err
			}
		default:
			c.fader.FadeTo(s, t.TargetVolume, nil)
		}
	}

	c.sendEventLocked(Event{Type: EventVolumeChanged, TrackID: trackID, Volume: t.TargetVolume, State: c.state})

	if c.sink != nil {
		go c.sink.PersistVolume(t.MixID, trackID, t.TargetVolume)
	}
	return nil
}

// ToggleTrack stops a sounding track of the current mix or starts a silent one.
// Returns whether the track is sounding afterwards.
func (c *Controller) ToggleTrack(ctx context.Context, trackID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrControllerClosed
	}

	t, ok := c.tracks[trackID]
	if !ok {
		return false, errors.Wrapf(ErrTrackNotInMix, "track %s", trackID)
	}

	if s, ok := c.slots[trackID]; ok {
		c.stopSlotLocked(trackID, s)
		c.updateStateLocked()
		return false, nil
	}

	if err := c.soundLocked(ctx, t); err != nil {
		return false, err
	}
	c.updateStateLocked()
	return true, nil
}

// ActiveTrackCount returns the number of sounding tracks.
func (c *Controller) ActiveTrackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// HeldSlotCount returns the number of slots not yet released (sounding plus fading out).
func (c *Controller) HeldSlotCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots) + len(c.draining)
}

// State returns the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TrackVolume returns the instantaneous volume of a sounding track.
func (c *Controller) TrackVolume(trackID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[trackID]
	if !ok {
		return 0, false
	}
	return s.Volume(), true
}

// Snapshot returns the status of every track of the current mix, in mix order.
func (c *Controller) Snapshot() []TrackStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]TrackStatus, 0, len(c.order))
	for _, id := range c.order {
		t := c.tracks[id]
		st := TrackStatus{
			TrackID:      id,
			Name:         t.Name,
			TargetVolume: t.TargetVolume,
		}
		if s, ok := c.slots[id]; ok {
			st.Playing = true
			st.Volume = s.Volume()
			st.Fading = s.Fading()
		}
		result = append(result, st)
	}
	return result
}

// Idle returns a channel closed once every slot has been released.
func (c *Controller) Idle() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idleCh
}

// Shutdown stops everything and waits until every slot is released.
// When ctx expires first, the remaining slots are released without fading.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.stopAllLocked()
	idle := c.idleCh
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		n := c.forceReleaseAll()
		zlog.Warn().Msgf("playback: shutdown deadline reached, force released: slots=%d", n)
		return errors.Wrap(ctx.Err(), "shutdown")
	}
}

// Close shuts the controller down and closes the event channel.
func (c *Controller) Close(ctx context.Context) error {
	err := c.Shutdown(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return err
	}
	c.closed = true
	c.cancel()
	close(c.eventCh)
	return err
}

func (c *Controller) forceReleaseAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, s := range c.slots {
		delete(c.slots, id)
		c.releaseLocked(s)
		n++
	}
	for id, s := range c.draining {
		delete(c.draining, id)
		c.releaseLocked(s)
		n++
	}
	c.updateStateLocked()
	return n
}

// soundLocked makes t sound: revives a draining slot or acquires a new one.
// Must be called with lock held.
func (c *Controller) soundLocked(ctx context.Context, t mix.Track) error {
	if s, ok := c.draining[t.ID]; ok {
		delete(c.draining, t.ID)
		if s.IsActive() {
			c.slots[t.ID] = s
			c.fader.FadeTo(s, t.TargetVolume, nil)
			c.sendEventLocked(Event{Type: EventTrackStarted, TrackID: t.ID, Volume: t.TargetVolume, State: c.state})
			zlog.Debug().Msgf("playback: revived draining slot: track=%s target=%.2f", t.ID, t.TargetVolume)
			return nil
		}
		c.releaseLocked(s)
	}

	s, err := Acquire(ctx, c.loader, t)
	if err != nil {
		c.failTrackLocked(t.ID, err)
		return err
	}
	c.recorder.SlotAcquired()

	if err := s.Start(); err != nil {
		c.releaseLocked(s)
		c.failTrackLocked(t.ID, err)
		return err
	}

	c.slots[t.ID] = s
	go c.watchSlot(s)
	c.fader.FadeTo(s, t.TargetVolume, nil)
	c.sendEventLocked(Event{Type: EventTrackStarted, TrackID: t.ID, Volume: t.TargetVolume, State: c.state})
	zlog.Debug().Msgf("playback: track started: track=%s ref=%s target=%.2f", t.ID, t.ResourceRef, t.TargetVolume)
	return nil
}

// stopSlotLocked moves s to the draining set and fades it out.
// A slot that never produced sound is released immediately.
// Must be called with lock held.
func (c *Controller) stopSlotLocked(id string, s *Slot) {
	delete(c.slots, id)
	c.sendEventLocked(Event{Type: EventTrackStopped, TrackID: id, State: c.state})

	if !s.IsActive() {
		c.releaseLocked(s)
		return
	}

	c.draining[id] = s
	c.fader.FadeTo(s, 0, func() {
		c.finishStop(id, s)
	})
}

// finishStop releases s once its fade-out completed, unless it was revived meanwhile.
func (c *Controller) finishStop(id string, s *Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draining[id] != s {
		return
	}
	delete(c.draining, id)
	c.releaseLocked(s)
	c.updateStateLocked()
}

// watchSlot consumes slot lifecycle events until the slot is released.
func (c *Controller) watchSlot(s *Slot) {
	for ev := range s.Events() {
		switch ev.Type {
		case SlotFailed, SlotCompleted:
			c.onSlotEnded(s, ev)
		}
	}
}

func (c *Controller) onSlotEnded(s *Slot, ev SlotEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := s.TrackID()
	switch {
	case c.slots[id] == s:
		delete(c.slots, id)
	case c.draining[id] == s:
		delete(c.draining, id)
	default:
		return
	}
	c.releaseLocked(s)

	if ev.Type == SlotFailed {
		zlog.Warn().Err(ev.Err).Msgf("playback: track stopped by platform error: track=%s", id)
		c.recorder.TrackFailed(ReasonPlatform)
	} else {
		zlog.Info().Msgf("playback: track completed: track=%s", id)
		c.recorder.TrackFailed(ReasonCompleted)
	}
	c.updateStateLocked()
	c.sendEventLocked(Event{Type: EventTrackStopped, TrackID: id, State: c.state, Err: ev.Err})
}

// releaseLocked must be called with lock held.
func (c *Controller) releaseLocked(s *Slot) {
	s.Release()
	c.recorder.SlotReleased()
}

func (c *Controller) failTrackLocked(id string, err error) {
	zlog.Warn().Err(err).Msgf("playback: track failed to start: track=%s", id)
	c.recorder.TrackFailed(ReasonUnavailable)
	c.sendEventLocked(Event{Type: EventTrackFailed, TrackID: id, State: c.state, Err: err})
}

// updateStateLocked recomputes state and the idle signal.
// Must be called with lock held.
func (c *Controller) updateStateLocked() {
	held := len(c.slots)+len(c.draining) > 0
	if held && c.idle {
		c.idleCh = make(chan struct{})
		c.idle = false
	} else if !held && !c.idle {
		close(c.idleCh)
		c.idle = true
	}

	next := StateIdle
	if len(c.slots) > 0 {
		next = StatePlaying
	}
	if next != c.state {
		c.state = next
		c.sendEventLocked(Event{Type: EventStateChanged, State: c.state})
	}
}

func (c *Controller) sortedSlotIDsLocked() []string {
	ids := make([]string, 0, len(c.slots))
	for id := range c.slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		zlog.Debug().Msgf("playback: event dropped: type=%s track=%s", e.Type, e.TrackID)
	}
}
