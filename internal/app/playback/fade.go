package playback

import (
	"math"
	"sync"
	"time"

	"github.com/osa030/sleepmix/internal/domain/mix"
	zlog "github.com/rs/zerolog/log"
)

// Fade policy defaults.
const (
	DefaultFadeDuration = 400 * time.Millisecond
	DefaultFadeStep     = 50 * time.Millisecond
)

// FadePolicy holds the ramp timing.
type FadePolicy struct {
	Duration time.Duration
	Step     time.Duration
}

// Steps returns the number of volume writes per fade.
func (p FadePolicy) Steps() int {
	if p.Step <= 0 || p.Duration <= 0 {
		return 1
	}
	n := int(math.Ceil(float64(p.Duration) / float64(p.Step)))
	if n < 1 {
		return 1
	}
	return n
}

// FadeScheduler drives linear volume ramps on slots.
type FadeScheduler struct {
	sched    Scheduler
	policy   FadePolicy
	recorder Recorder
}

// NewFadeScheduler creates a new fade scheduler.
func NewFadeScheduler(sched Scheduler, policy FadePolicy, recorder Recorder) *FadeScheduler {
	if policy.Duration <= 0 {
		policy.Duration = DefaultFadeDuration
	}
	if policy.Step <= 0 {
		policy.Step = DefaultFadeStep
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &FadeScheduler{
		sched:    sched,
		policy:   policy,
		recorder: recorder,
	}
}

// Policy returns the fade timing in use.
func (f *FadeScheduler) Policy() FadePolicy {
	return f.policy
}

// FadeTo ramps slot from its current volume to target, replacing any in-flight fade.
// onComplete runs on a scheduler goroutine after the final step was written; it never runs
// when the job is cancelled or the slot is released first.
func (f *FadeScheduler) FadeTo(slot *Slot, target float64, onComplete func()) *FadeJob {
	job := &FadeJob{
		slot:       slot,
		to:         mix.ClampVolume(target),
		steps:      f.policy.Steps(),
		interval:   f.policy.Step,
		sched:      f.sched,
		onComplete: onComplete,
	}

	from, prev, err := slot.beginFade(job)
	if err != nil {
		job.cancelled = true
		return job
	}
	job.from = from

	if prev != nil && prev.Cancel() {
		f.recorder.FadeCancelled()
	}
	if job.to >= job.from {
		f.recorder.FadeStarted(FadeIn)
	} else {
		f.recorder.FadeStarted(FadeOut)
	}

	job.mu.Lock()
	job.scheduleLocked(1)
	job.mu.Unlock()
	return job
}

// FadeJob is one scheduled ramp bound to one slot.
type FadeJob struct {
	mu sync.Mutex

	slot     *Slot
	from     float64
	to       float64
	steps    int
	interval time.Duration
	sched    Scheduler

	onComplete func()
	handle     Handle
	cancelled  bool
	finished   bool
}

// Target returns the volume the job ramps to.
func (j *FadeJob) Target() float64 {
	return j.to
}

// VolumeAt returns the volume written at step (1..steps). The last step is exactly the target.
func (j *FadeJob) VolumeAt(step int) float64 {
	if step >= j.steps {
		return j.to
	}
	return mix.ClampVolume(j.from + (j.to-j.from)*float64(step)/float64(j.steps))
}

// Cancel stops the remaining steps. Returns false if the job already finished or was cancelled.
func (j *FadeJob) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelled || j.finished {
		return false
	}
	j.cancelled = true
	if j.handle != nil {
		j.handle.Cancel()
		j.handle = nil
	}
	return true
}

// Cancelled returns true if the job was cancelled before finishing.
func (j *FadeJob) Cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// Finished returns true once the final step was written.
func (j *FadeJob) Finished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished
}

// scheduleLocked must be called with the job lock held.
func (j *FadeJob) scheduleLocked(step int) {
	j.handle = j.sched.Schedule(j.interval, func() { j.run(step) })
}

func (j *FadeJob) run(step int) {
	j.mu.Lock()
	if j.cancelled || j.finished {
		j.mu.Unlock()
		return
	}
	j.handle = nil
	j.mu.Unlock()

	last := step >= j.steps
	ok, err := j.slot.applyFadeStep(j, j.VolumeAt(step), last)
	if err != nil || !ok {
		j.mu.Lock()
		j.cancelled = true
		j.mu.Unlock()
		if err != nil {
			zlog.Debug().Msgf("playback: fade aborted, slot released: track=%s step=%d", j.slot.TrackID(), step)
		}
		return
	}

	j.mu.Lock()
	if last {
		j.finished = true
		j.mu.Unlock()
		if j.onComplete != nil {
			j.onComplete()
		}
		return
	}
	if !j.cancelled {
		j.scheduleLocked(step + 1)
	}
	j.mu.Unlock()
}
