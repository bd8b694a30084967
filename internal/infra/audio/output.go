package audio

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output plays streamers. Lock and Unlock guard changes to streamers already playing.
type Output interface {
	Play(s beep.Streamer)
	Lock()
	Unlock()
	SampleRate() beep.SampleRate
	Close()
}

// speakerOutput plays through the system audio device.
type speakerOutput struct {
	rate beep.SampleRate
}

// NewSpeakerOutput initializes the audio device.
func NewSpeakerOutput(rate beep.SampleRate, buffer time.Duration) (Output, error) {
	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}
	return &speakerOutput{rate: rate}, nil
}

func (o *speakerOutput) Play(s beep.Streamer)        { speaker.Play(s) }
func (o *speakerOutput) Lock()                       { speaker.Lock() }
func (o *speakerOutput) Unlock()                     { speaker.Unlock() }
func (o *speakerOutput) SampleRate() beep.SampleRate { return o.rate }

func (o *speakerOutput) Close() {
	speaker.Clear()
	speaker.Close()
}

// NullOutput mixes streamers without an audio device.
// Samples are pulled by Run in real time, or on demand by Drain.
type NullOutput struct {
	mu    sync.Mutex
	rate  beep.SampleRate
	mixer beep.Mixer
}

// NewNullOutput creates an output without a device.
func NewNullOutput(rate beep.SampleRate) *NullOutput {
	return &NullOutput{rate: rate}
}

func (o *NullOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mixer.Add(s)
}

func (o *NullOutput) Lock()                       { o.mu.Lock() }
func (o *NullOutput) Unlock()                     { o.mu.Unlock() }
func (o *NullOutput) SampleRate() beep.SampleRate { return o.rate }

func (o *NullOutput) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mixer.Clear()
}

// Drain pulls n samples from every playing streamer and returns the mix.
func (o *NullOutput) Drain(n int) [][2]float64 {
	samples := make([][2]float64, n)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.mixer.Stream(samples)
	return samples
}

// Streaming returns the number of streamers still playing.
func (o *NullOutput) Streaming() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mixer.Len()
}

// Run pulls one buffer of samples per buffer period until ctx is done.
func (o *NullOutput) Run(ctx context.Context, buffer time.Duration) {
	ticker := time.NewTicker(buffer)
	defer ticker.Stop()

	n := o.rate.N(buffer)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Drain(n)
		}
	}
}
