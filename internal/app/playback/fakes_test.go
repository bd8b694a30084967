package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// manualScheduler runs scheduled tasks only when the test advances it.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	sched     *manualScheduler
	delay     time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{}
}

func (m *manualScheduler) Schedule(delay time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTask{sched: m, delay: delay, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTask) Cancel() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()

	if t.cancelled || t.fired {
		return false
	}
	t.cancelled = true
	return true
}

// Step runs every task pending right now (not the ones they schedule) and returns how many ran.
func (m *manualScheduler) Step() int {
	m.mu.Lock()
	pending := m.tasks
	m.tasks = nil
	var runnable []*manualTask
	for _, t := range pending {
		if !t.cancelled && !t.fired {
			t.fired = true
			runnable = append(runnable, t)
		}
	}
	m.mu.Unlock()

	for _, t := range runnable {
		t.fn()
	}
	return len(runnable)
}

// Drain steps until nothing is pending.
func (m *manualScheduler) Drain() int {
	total := 0
	for i := 0; i < 1000; i++ {
		n := m.Step()
		if n == 0 {
			return total
		}
		total += n
	}
	return total
}

// Pending returns the number of runnable tasks.
func (m *manualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.tasks {
		if !t.cancelled && !t.fired {
			n++
		}
	}
	return n
}

type fakePlayer struct {
	mu sync.Mutex

	ref     string
	playing bool
	volumes []float64
	closes  int
	playErr error
	done    chan error
}

func newFakePlayer(ref string) *fakePlayer {
	return &fakePlayer{ref: ref, done: make(chan error, 1)}
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.playing = true
	return nil
}

func (p *fakePlayer) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volumes = append(p.volumes, v)
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Done() <-chan error {
	return p.done
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	p.playing = false
	return nil
}

// fail simulates a platform error mid-playback.
func (p *fakePlayer) fail(err error) {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	p.done <- err
}

func (p *fakePlayer) Volumes() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]float64, len(p.volumes))
	copy(out, p.volumes)
	return out
}

func (p *fakePlayer) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *fakePlayer) LastVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.volumes) == 0 {
		return -1
	}
	return p.volumes[len(p.volumes)-1]
}

// fakeLoader opens fake players; refs listed in bad fail, refs in panics panic.
type fakeLoader struct {
	mu sync.Mutex

	bad     map[string]bool
	panics  map[string]bool
	playErr map[string]error
	players []*fakePlayer
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		bad:     make(map[string]bool),
		panics:  make(map[string]bool),
		playErr: make(map[string]error),
	}
}

func (l *fakeLoader) Open(_ context.Context, ref string) (Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.panics[ref] {
		panic("decoder exploded: " + ref)
	}
	if l.bad[ref] {
		return nil, errors.Newf("no such resource: %s", ref)
	}
	p := newFakePlayer(ref)
	p.playErr = l.playErr[ref]
	l.players = append(l.players, p)
	return p, nil
}

// opened returns every player created for ref, oldest first.
func (l *fakeLoader) opened(ref string) []*fakePlayer {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*fakePlayer
	for _, p := range l.players {
		if p.ref == ref {
			out = append(out, p)
		}
	}
	return out
}

func (l *fakeLoader) all() []*fakePlayer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*fakePlayer, len(l.players))
	copy(out, l.players)
	return out
}

// brokenLoader returns a player together with an error.
type brokenLoader struct {
	player *fakePlayer
}

func (l *brokenLoader) Open(_ context.Context, ref string) (Player, error) {
	l.player = newFakePlayer(ref)
	return l.player, errors.New("header truncated")
}

type countingRecorder struct {
	mu        sync.Mutex
	acquired  int
	released  int
	failures  map[string]int
	fades     map[string]int
	cancelled int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{failures: make(map[string]int), fades: make(map[string]int)}
}

func (r *countingRecorder) SlotAcquired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acquired++
}

func (r *countingRecorder) SlotReleased() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released++
}

func (r *countingRecorder) TrackFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[reason]++
}

func (r *countingRecorder) FadeStarted(direction string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fades[direction]++
}

func (r *countingRecorder) FadeCancelled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled++
}

func (r *countingRecorder) counts() (acquired, released int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquired, r.released
}

type sinkCall struct {
	mixID   string
	trackID string
	volume  float64
}

type chanSink struct {
	calls chan sinkCall
}

func newChanSink() *chanSink {
	return &chanSink{calls: make(chan sinkCall, 16)}
}

func (s *chanSink) PersistVolume(mixID, trackID string, volume float64) {
	s.calls <- sinkCall{mixID: mixID, trackID: trackID, volume: volume}
}
