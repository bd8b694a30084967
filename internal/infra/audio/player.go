package audio

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// ErrPlayerClosed is returned by Play after Close.
var ErrPlayerClosed = errors.New("player closed")

// player loops one decoded file on the shared output.
type player struct {
	ref     string
	out     Output
	decoded beep.StreamSeekCloser
	volume  *effects.Volume
	ctrl    *beep.Ctrl

	playing atomic.Bool
	closed  atomic.Bool
	done    chan error
	once    sync.Once
	closeMu sync.Mutex
}

func newPlayer(ref string, out Output, decoded beep.StreamSeekCloser, s beep.Streamer) *player {
	p := &player{
		ref:     ref,
		out:     out,
		decoded: decoded,
		done:    make(chan error, 1),
	}
	p.volume = &effects.Volume{
		Streamer: &watchedStreamer{Streamer: s, onEnd: p.finish},
		Base:     2,
		Silent:   true,
	}
	p.ctrl = &beep.Ctrl{Streamer: p.volume}
	return p
}

// Play adds the player to the output. The player starts silent.
func (p *player) Play() error {
	if p.closed.Load() {
		return errors.Wrapf(ErrPlayerClosed, "%s", p.ref)
	}
	if p.playing.Swap(true) {
		return nil
	}
	p.out.Play(p.ctrl)
	return nil
}

// SetVolume sets the linear volume in [0,1].
func (p *player) SetVolume(v float64) {
	v = math.Max(0, math.Min(1, v))

	p.out.Lock()
	defer p.out.Unlock()
	p.volume.Silent = v <= 0
	if v > 0 {
		p.volume.Volume = math.Log2(v)
	}
}

func (p *player) Playing() bool {
	return p.playing.Load() && !p.closed.Load()
}

func (p *player) Done() <-chan error {
	return p.done
}

// Close detaches the streamer from the output and closes the decoder.
func (p *player) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed.Swap(true) {
		return nil
	}

	p.out.Lock()
	p.ctrl.Streamer = nil
	p.out.Unlock()

	p.playing.Store(false)
	// The decoder owns the file.
	if err := p.decoded.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", p.ref)
	}
	return nil
}

// finish reports the end of the stream once. Called from the output goroutine.
func (p *player) finish(err error) {
	p.once.Do(func() {
		p.playing.Store(false)
		if err != nil {
			err = errors.Wrapf(err, "playback of %s failed", p.ref)
		}
		p.done <- err
	})
}

// watchedStreamer reports when the wrapped streamer is drained.
type watchedStreamer struct {
	beep.Streamer
	onEnd func(error)
}

func (w *watchedStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := w.Streamer.Stream(samples)
	if !ok {
		w.onEnd(w.Streamer.Err())
	}
	return n, ok
}
