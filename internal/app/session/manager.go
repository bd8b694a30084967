// Package session provides the session manager.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sleepmix/internal/app/filter"
	"github.com/osa030/sleepmix/internal/app/notification"
	"github.com/osa030/sleepmix/internal/app/playback"
	"github.com/osa030/sleepmix/internal/app/session/registry"
	"github.com/osa030/sleepmix/internal/app/session/state"
	"github.com/osa030/sleepmix/internal/domain/binding"
	"github.com/osa030/sleepmix/internal/domain/mix"
	"github.com/osa030/sleepmix/internal/infra/config"
)

const persistTimeout = 5 * time.Second

// Manager keeps one playback controller alive for the lifetime of the host process
// and is the single entry point for clients.
type Manager struct {
	mu sync.Mutex // Serialises Start and Stop

	// Configuration
	config          *config.Config
	shutdownTimeout time.Duration

	// Components
	stateMgr     *state.Manager
	bindings     *registry.BindingRegistry
	playback     *playback.Controller
	filterChain  *filter.Chain
	notification *notification.Manager

	// Collaborators
	source MixSource
	store  VolumeStore
	host   Host

	// Mix handed to the controller by the last successful Start
	current atomic.Pointer[mix.Mix]

	// Host signal
	signalMu    sync.Mutex
	waitingIdle bool

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, loader playback.Loader, source MixSource, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if loader == nil {
		return nil, errors.New("loader is required")
	}
	if source == nil {
		return nil, errors.New("mix source is required")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.host == nil {
		o.host = logHost{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:          cfg,
		shutdownTimeout: cfg.ShutdownTimeout(),
		stateMgr:        state.New(uuid.New().String()),
		bindings:        registry.NewBindingRegistry(),
		filterChain:     filter.NewChain(),
		notification:    notification.NewManager(),
		source:          source,
		store:           o.store,
		host:            o.host,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}

	pbOpts := []playback.Option{
		playback.WithVolumeSink(m),
		playback.WithRecorder(o.recorder),
	}
	if o.scheduler != nil {
		pbOpts = append(pbOpts, playback.WithScheduler(o.scheduler))
	}
	m.playback = playback.NewController(playback.Config{
		FadeDuration: cfg.FadeDuration(),
		FadeStep:     cfg.FadeStep(),
		VolumePolicy: playback.VolumePolicy(cfg.Playback.VolumePolicy),
		EventBuffer:  cfg.Playback.EventBuffer,
	}, loader, pbOpts...)

	m.setupFilters()

	go m.playbackLoop()

	zlog.Info().Msgf("session created: session_id=%s fade=%v step=%v volume_policy=%s",
		m.stateMgr.GetSessionID(), cfg.FadeDuration(), cfg.FadeStep(), cfg.Playback.VolumePolicy)
	return m, nil
}

// setupFilters initializes the filter chain from the enabled filters.
func (m *Manager) setupFilters() {
	for _, name := range filter.RegisteredNames() {
		if !m.config.IsFilterEnabled(name) {
			continue
		}
		f, err := filter.New(name, m.config.GetFilterSettings(name))
		if err != nil {
			zlog.Error().Msgf("failed to set up filter: name=%s err=%v", name, err)
			continue
		}
		m.filterChain.Add(f)
		zlog.Info().Msgf("filter enabled: name=%s", name)
	}
}

// Start plays a mix. The mix is read once; a missing mix leaves the session untouched.
// Tracks refused by a filter or failing to open are reported in the result and
// the rest of the mix still plays.
func (m *Manager) Start(ctx context.Context, mixID string) (*playback.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateMgr.IsTerminated() {
		return nil, ErrSessionTerminated
	}

	mx, err := m.source.ResolveMix(ctx, mixID)
	if err != nil {
		zlog.Warn().Msgf("mix start rejected: mix_id=%s err=%v", mixID, err)
		return nil, errors.Wrapf(err, "failed to resolve mix %s", mixID)
	}

	accepted, rejected := m.filterChain.Partition(ctx, mx, filter.OriginMix)

	m.current.Store(mx)
	m.stateMgr.SetMix(mx.ID, mx.Name)

	res, err := m.playback.PlayMix(ctx, accepted)
	if res == nil {
		return nil, errors.Wrap(err, "failed to play mix")
	}
	for _, r := range rejected {
		zlog.Info().Msgf("track rejected: mix_id=%s track_id=%s filter=%s code=%s", mx.ID, r.Track.ID, r.Filter, r.Code)
		res.Failed = append(res.Failed, playback.TrackFailure{
			TrackID: r.Track.ID,
			Err:     &RejectionError{Filter: r.Filter, Code: r.Code},
		})
	}
	if err == nil && res.Playing() == 0 {
		err = playback.ErrNothingPlayable
	}

	if err != nil {
		m.playback.StopAll()
		m.current.Store(nil)
		m.stateMgr.ClearMix()
		m.stateMgr.SetPhase(state.PhaseIdle)
		m.syncHostSignal()
		m.broadcastState()
		zlog.Warn().Msgf("mix start failed: mix_id=%s failed=%d err=%v", mx.ID, len(res.Failed), err)
		return res, errors.Wrapf(err, "mix %s", mx.ID)
	}

	m.stateMgr.SetPhase(state.PhasePlaying)
	m.syncHostSignal()
	m.broadcastState()

	zlog.Info().Msgf("mix started: mix_id=%s name=%s started=%d retargeted=%d unchanged=%d stopped=%d failed=%d",
		mx.ID, mx.Name, len(res.Started), len(res.Retargeted), len(res.Unchanged), len(res.Stopped), len(res.Failed))
	return res, nil
}

// Stop fades everything out and returns once every player has been released.
// The host is told it may go to the background only after that.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateMgr.IsTerminated() {
		return nil
	}

	sessionID := m.stateMgr.GetSessionID()
	zlog.Info().Msgf("stopping session: session_id=%s", sessionID)

	m.stateMgr.SetPhase(state.PhaseStopping)
	m.playback.StopAll()
	m.current.Store(nil)
	m.stateMgr.ClearMix()
	m.broadcastState()

	select {
	case <-m.playback.Idle():
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "failed to wait for players to be released")
	}

	m.stateMgr.SetPhase(state.PhaseIdle)
	m.syncHostSignal()
	m.broadcastState()

	zlog.Info().Msgf("session stopped: session_id=%s", sessionID)
	return nil
}

// Close tears the session down. Playback is stopped to completion; players still
// fading when the shutdown timeout (or ctx) expires are released without fading.
// Close is idempotent and closes Done.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		sessionID := m.stateMgr.GetSessionID()
		zlog.Info().Msgf("closing session: session_id=%s", sessionID)

		m.stateMgr.SetPhase(state.PhaseStopping)

		sctx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		defer cancel()
		if err := m.playback.Close(sctx); err != nil {
			zlog.Warn().Msgf("players force released on close: session_id=%s err=%v", sessionID, err)
			m.closeErr = err
		}
		m.cancel()

		m.current.Store(nil)
		m.stateMgr.ClearMix()
		m.syncHostSignal()
		m.stateMgr.SetPhase(state.PhaseTerminated)
		m.broadcastState()

		m.notification.Close()
		m.bindings.Clear()

		zlog.Info().Msgf("phase changed: phase=TERMINATED session_id=%s", sessionID)
		close(m.done)
	})
	return m.closeErr
}

// Done returns a channel closed once the session is terminated.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Bind registers a client with the session and returns its binding ID.
func (m *Manager) Bind(name, clientID string) (string, error) {
	if m.stateMgr.IsTerminated() {
		return "", ErrSessionTerminated
	}

	id := m.bindings.Bind(name, clientID)
	zlog.Info().Msgf("client bound: binding_id=%s name=%s", id, name)
	m.broadcastState()
	return id, nil
}

// Unbind removes a client. Playback is not affected.
func (m *Manager) Unbind(bindingID string) error {
	if err := m.bindings.Unbind(bindingID); err != nil {
		return err
	}
	zlog.Info().Msgf("client unbound: binding_id=%s", bindingID)
	m.broadcastState()
	return nil
}

// ValidateBinding checks a binding ID and records the command on it.
func (m *Manager) ValidateBinding(bindingID string) error {
	return m.bindings.Touch(bindingID)
}

// ListBindings returns all bound clients.
func (m *Manager) ListBindings() []binding.Binding {
	return m.bindings.All()
}

// SetTrackVolume changes one track's volume. The new value is persisted in the background.
func (m *Manager) SetTrackVolume(trackID string, volume float64) error {
	if m.stateMgr.IsTerminated() {
		return ErrSessionTerminated
	}
	if m.current.Load() == nil {
		return ErrNoMix
	}
	if err := m.playback.SetTrackVolume(trackID, volume); err != nil {
		return errors.Wrapf(err, "failed to set volume of track %s", trackID)
	}
	return nil
}

// ToggleTrack starts a silent track of the current mix or stops a sounding one.
// Returns whether the track is sounding afterwards.
func (m *Manager) ToggleTrack(ctx context.Context, trackID string) (bool, error) {
	if m.stateMgr.IsTerminated() {
		return false, ErrSessionTerminated
	}

	mx := m.current.Load()
	if mx == nil {
		return false, ErrNoMix
	}
	t, ok := mx.Track(trackID)
	if !ok {
		return false, errors.Wrapf(playback.ErrTrackNotInMix, "track %s", trackID)
	}

	if _, sounding := m.playback.TrackVolume(trackID); !sounding {
		if result, name := m.filterChain.Execute(ctx, t, mx, filter.OriginToggle); !result.Accepted {
			zlog.Info().Msgf("track toggle rejected: track_id=%s filter=%s code=%s", trackID, name, result.Code)
			return false, &RejectionError{Filter: name, Code: result.Code}
		}
	}

	playing, err := m.playback.ToggleTrack(ctx, trackID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to toggle track %s", trackID)
	}
	zlog.Info().Msgf("track toggled: track_id=%s playing=%t", trackID, playing)
	return playing, nil
}

// PersistVolume stores a track's volume in the mix it belonged to when it was changed.
// Failures are logged; playback state is never rolled back.
func (m *Manager) PersistVolume(mixID, trackID string, volume float64) {
	if m.store == nil || mixID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.UpdateTrackVolume(ctx, mixID, trackID, volume); err != nil {
		zlog.Warn().Msgf("failed to persist volume: mix_id=%s track_id=%s volume=%.2f err=%v", mixID, trackID, volume, err)
	}
}

// Status represents the current session status with all information.
type Status struct {
	Phase         state.Phase
	PlaybackState playback.State
	Signal        state.HostSignal
	MixID         string
	MixName       string
	Tracks        []playback.TrackStatus
	ActiveTracks  int
	HeldSlots     int
	BindingCount  int
	SessionInfo   *notification.SessionInfo
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	mixID, mixName := m.stateMgr.GetMix()
	return &Status{
		Phase:         m.stateMgr.GetPhase(),
		PlaybackState: m.playback.State(),
		Signal:        m.stateMgr.GetSignal(),
		MixID:         mixID,
		MixName:       mixName,
		Tracks:        m.playback.Snapshot(),
		ActiveTracks:  m.playback.ActiveTrackCount(),
		HeldSlots:     m.playback.HeldSlotCount(),
		BindingCount:  m.bindings.Count(),
		SessionInfo:   m.buildSessionInfo(),
	}
}

// Subscribe registers a notification stream and sends it the full status first.
func (m *Manager) Subscribe(stream notification.Stream) (string, error) {
	if m.stateMgr.IsTerminated() {
		return "", ErrSessionTerminated
	}

	id := m.notification.Subscribe(stream)
	initial := &notification.Notification{
		Type:        notification.TypeInitial,
		SequenceNo:  m.notification.NextSequenceNo(),
		SessionInfo: m.buildSessionInfo(),
		Tracks:      m.buildTrackInfos(),
	}
	if err := m.notification.Send(id, initial); err != nil {
		m.notification.Unsubscribe(id)
		return "", errors.Wrap(err, "failed to send initial notification")
	}
	zlog.Debug().Msgf("notification subscribed: subscription_id=%s", id)
	return id, nil
}

// Unsubscribe removes a notification stream.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.notification.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("notification unsubscribed: subscription_id=%s", subscriptionID)
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// syncHostSignal raises the host signal matching the controller.
// Background is deferred until every slot has been released.
func (m *Manager) syncHostSignal() {
	m.signalMu.Lock()
	defer m.signalMu.Unlock()

	if m.playback.State() == playback.StatePlaying {
		if m.stateMgr.SwapSignal(state.SignalForeground) {
			_, name := m.stateMgr.GetMix()
			m.host.Foreground(name)
		}
		return
	}

	if m.playback.HeldSlotCount() > 0 {
		if !m.waitingIdle {
			m.waitingIdle = true
			go m.backgroundWhenIdle()
		}
		return
	}

	if m.stateMgr.SwapSignal(state.SignalBackground) {
		m.host.Background()
		if m.stateMgr.GetPhase() == state.PhaseStopping {
			m.stateMgr.SetPhase(state.PhaseIdle)
		}
	}
}

func (m *Manager) backgroundWhenIdle() {
	select {
	case <-m.playback.Idle():
	case <-m.ctx.Done():
	}

	m.signalMu.Lock()
	m.waitingIdle = false
	m.signalMu.Unlock()

	if m.ctx.Err() == nil {
		m.syncHostSignal()
	}
}

// playbackLoop turns controller events into notifications.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			// Restart loop to keep notifications flowing
			zlog.Info().Msg("restarting playback loop")
			go m.playbackLoop()
		}
	}()

	events := m.playback.Events()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	zlog.Debug().Msgf("playback event: type=%s track_id=%s state=%s", event.Type, event.TrackID, event.State)

	switch event.Type {
	case playback.EventStateChanged:
		m.syncHostSignal()
		m.broadcastState()

	case playback.EventVolumeChanged:
		_, playing := m.playback.TrackVolume(event.TrackID)
		m.broadcastTrack(notification.TypeVolume, event, playing)

	case playback.EventTrackStarted:
		m.broadcastTrack(notification.TypeTrack, event, true)

	case playback.EventTrackStopped, playback.EventTrackFailed:
		m.broadcastTrack(notification.TypeTrack, event, false)
	}
}

func (m *Manager) broadcastState() {
	m.notification.Broadcast(&notification.Notification{
		Type:        notification.TypeState,
		SessionInfo: m.buildSessionInfo(),
	})
}

func (m *Manager) broadcastTrack(typ notification.Type, event playback.Event, playing bool) {
	info := &notification.TrackInfo{
		TrackID:      event.TrackID,
		TargetVolume: event.Volume,
		Playing:      playing,
		Event:        event.Type.String(),
	}
	if mx := m.current.Load(); mx != nil {
		if t, ok := mx.Track(event.TrackID); ok {
			info.Name = t.Name
		}
	}
	if v, ok := m.playback.TrackVolume(event.TrackID); ok {
		info.Volume = v
	}
	if event.Err != nil {
		info.Error = event.Err.Error()
	}

	m.notification.Broadcast(&notification.Notification{
		Type:        typ,
		SessionInfo: m.buildSessionInfo(),
		Track:       info,
	})
}

func (m *Manager) buildSessionInfo() *notification.SessionInfo {
	mixID, mixName := m.stateMgr.GetMix()
	return &notification.SessionInfo{
		SessionID:    m.stateMgr.GetSessionID(),
		Phase:        m.stateMgr.GetPhase().String(),
		MixID:        mixID,
		MixName:      mixName,
		Playing:      m.playback.State() == playback.StatePlaying,
		ActiveTracks: m.playback.ActiveTrackCount(),
		BindingCount: m.bindings.Count(),
	}
}

func (m *Manager) buildTrackInfos() []notification.TrackInfo {
	snapshot := m.playback.Snapshot()
	infos := make([]notification.TrackInfo, 0, len(snapshot))
	for _, st := range snapshot {
		infos = append(infos, notification.TrackInfo{
			TrackID:      st.TrackID,
			Name:         st.Name,
			TargetVolume: st.TargetVolume,
			Volume:       st.Volume,
			Playing:      st.Playing,
		})
	}
	return infos
}
