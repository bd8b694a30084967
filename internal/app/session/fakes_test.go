package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sleepmix/internal/app/notification"
	"github.com/osa030/sleepmix/internal/app/playback"
	"github.com/osa030/sleepmix/internal/domain/mix"
)

// immediateScheduler runs every fade step on its own goroutine without waiting.
type immediateScheduler struct{}

type immediateHandle struct {
	state atomic.Int32 // 0 pending, 1 fired, 2 cancelled
}

func (h *immediateHandle) Cancel() bool {
	return h.state.CompareAndSwap(0, 2)
}

func (immediateScheduler) Schedule(_ time.Duration, fn func()) playback.Handle {
	h := &immediateHandle{}
	go func() {
		if h.state.CompareAndSwap(0, 1) {
			fn()
		}
	}()
	return h
}

// heldScheduler keeps every fade step pending until release is called.
type heldScheduler struct {
	mu       sync.Mutex
	released bool
	pending  []func()
}

func (s *heldScheduler) Schedule(d time.Duration, fn func()) playback.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return immediateScheduler{}.Schedule(d, fn)
	}
	h := &immediateHandle{}
	s.pending = append(s.pending, func() {
		if h.state.CompareAndSwap(0, 1) {
			fn()
		}
	})
	return h
}

func (s *heldScheduler) release() {
	s.mu.Lock()
	s.released = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range pending {
		go fn()
	}
}

type fakePlayer struct {
	mu      sync.Mutex
	ref     string
	playing bool
	closed  bool
	volume  float64
	done    chan error
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	return nil
}

func (p *fakePlayer) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.closed
}

func (p *fakePlayer) Done() <-chan error {
	return p.done
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.playing = false
	return nil
}

func (p *fakePlayer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeLoader struct {
	mu      sync.Mutex
	missing map[string]bool
	players []*fakePlayer
}

func newFakeLoader(missing ...string) *fakeLoader {
	l := &fakeLoader{missing: make(map[string]bool)}
	for _, ref := range missing {
		l.missing[ref] = true
	}
	return l
}

func (l *fakeLoader) Open(ctx context.Context, ref string) (playback.Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.missing[ref] {
		return nil, errors.Newf("no such file: %s", ref)
	}
	p := &fakePlayer{ref: ref, done: make(chan error, 1)}
	l.players = append(l.players, p)
	return p, nil
}

func (l *fakeLoader) all() []*fakePlayer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakePlayer(nil), l.players...)
}

func (l *fakeLoader) openCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.players)
}

type fakeSource struct {
	mixes map[string]*mix.Mix
}

func (s *fakeSource) ResolveMix(ctx context.Context, mixID string) (*mix.Mix, error) {
	m, ok := s.mixes[mixID]
	if !ok {
		return nil, errors.Wrapf(mix.ErrMixNotFound, "mix %s", mixID)
	}
	cp := *m
	cp.Tracks = make([]mix.Track, len(m.Tracks))
	for i, t := range m.Tracks {
		t.MixID = m.ID
		cp.Tracks[i] = t
	}
	return &cp, nil
}

type volumeUpdate struct {
	mixID   string
	trackID string
	volume  float64
}

type fakeStore struct {
	updates chan volumeUpdate
	err     error
	gate    chan struct{} // When set, writes wait until it is closed
}

func (s *fakeStore) UpdateTrackVolume(ctx context.Context, mixID, trackID string, volume float64) error {
	if s.gate != nil {
		<-s.gate
	}
	s.updates <- volumeUpdate{mixID: mixID, trackID: trackID, volume: volume}
	return s.err
}

type fakeHost struct {
	mu          sync.Mutex
	foreground  []string
	backgrounds int
}

func (h *fakeHost) Foreground(mixName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.foreground = append(h.foreground, mixName)
}

func (h *fakeHost) Background() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backgrounds++
}

func (h *fakeHost) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.foreground), h.backgrounds
}

type fakeStream struct {
	ch chan *notification.Notification
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan *notification.Notification, 256)}
}

func (s *fakeStream) Send(n *notification.Notification) error {
	s.ch <- n
	return nil
}
