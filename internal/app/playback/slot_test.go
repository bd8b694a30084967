package playback

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/osa030/sleepmix/internal/domain/mix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acquireStarted(t *testing.T, loader *fakeLoader, id, ref string) (*Slot, *fakePlayer) {
	t.Helper()
	s, err := Acquire(context.Background(), loader, mix.Track{ID: id, ResourceRef: ref})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	players := loader.opened(ref)
	require.NotEmpty(t, players)
	return s, players[len(players)-1]
}

func TestAcquire_Failures(t *testing.T) {
	loader := newFakeLoader()
	loader.bad["missing"] = true
	loader.panics["corrupt"] = true

	tests := []struct {
		name string
		ref  string
	}{
		{name: "loader error", ref: "missing"},
		{name: "loader panic", ref: "corrupt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Acquire(context.Background(), loader, mix.Track{ID: "1", ResourceRef: tt.ref})
			assert.Nil(t, s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrResourceUnavailable))
		})
	}
}

func TestAcquire_ClosesPlayerReturnedWithError(t *testing.T) {
	loader := &brokenLoader{}

	s, err := Acquire(context.Background(), loader, mix.Track{ID: "1", ResourceRef: "half"})

	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrResourceUnavailable))
	assert.Equal(t, 1, loader.player.Closes())
}

func TestAcquire_CancelledContext(t *testing.T) {
	loader := newFakeLoader()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Acquire(ctx, loader, mix.Track{ID: "1", ResourceRef: "rain"})

	assert.True(t, errors.Is(err, ErrResourceUnavailable))
	assert.Empty(t, loader.all())
}

func TestSlot_StartAtZeroVolume(t *testing.T) {
	loader := newFakeLoader()
	s, p := acquireStarted(t, loader, "1", "rain")
	defer s.Release()

	assert.True(t, s.IsActive())
	assert.Equal(t, 0.0, s.Volume())
	assert.Equal(t, []float64{0}, p.Volumes())

	ev := <-s.Events()
	assert.Equal(t, SlotStarted, ev.Type)
	assert.Equal(t, "1", ev.TrackID)
}

func TestSlot_StartFailure(t *testing.T) {
	loader := newFakeLoader()
	loader.playErr["rain"] = errors.New("device busy")

	s, err := Acquire(context.Background(), loader, mix.Track{ID: "1", ResourceRef: "rain"})
	require.NoError(t, err)

	err = s.Start()
	assert.True(t, errors.Is(err, ErrResourceUnavailable))
	assert.False(t, s.IsActive())
	s.Release()
}

func TestSlot_SetInstantVolumeClamps(t *testing.T) {
	loader := newFakeLoader()
	s, p := acquireStarted(t, loader, "1", "rain")
	defer s.Release()

	inputs := []float64{-1, -0.0001, 0, 0.25, 0.5, 0.999, 1, 1.0001, 42, math.Inf(1), math.Inf(-1), math.NaN()}
	for _, v := range inputs {
		require.NoError(t, s.SetInstantVolume(v))
		want := math.Max(0, math.Min(1, v))
		if math.IsNaN(v) {
			want = 0
		}
		assert.Equal(t, want, s.Volume(), "input %v", v)
		assert.Equal(t, want, p.LastVolume(), "input %v", v)
	}
}

func TestSlot_ReleaseIdempotent(t *testing.T) {
	loader := newFakeLoader()
	s, p := acquireStarted(t, loader, "1", "rain")

	s.Release()
	s.Release()
	s.Release()

	assert.Equal(t, 1, p.Closes())
	assert.False(t, s.IsActive())
	assert.True(t, errors.Is(s.SetInstantVolume(0.5), ErrSlotReleased))
	assert.True(t, errors.Is(s.Start(), ErrSlotReleased))

	// Event stream drains then closes
	for range s.Events() {
	}
}

func TestSlot_PlatformFailureEvent(t *testing.T) {
	loader := newFakeLoader()
	s, p := acquireStarted(t, loader, "1", "rain")
	defer s.Release()

	<-s.Events() // started
	p.fail(errors.New("audio device lost"))

	select {
	case ev := <-s.Events():
		assert.Equal(t, SlotFailed, ev.Type)
		assert.EqualError(t, ev.Err, "audio device lost")
	case <-time.After(time.Second):
		t.Fatal("expected SlotFailed event")
	}
}

func TestSlot_CompletionEvent(t *testing.T) {
	loader := newFakeLoader()
	s, p := acquireStarted(t, loader, "1", "rain")
	defer s.Release()

	<-s.Events()
	p.done <- nil

	select {
	case ev := <-s.Events():
		assert.Equal(t, SlotCompleted, ev.Type)
		assert.NoError(t, ev.Err)
	case <-time.After(time.Second):
		t.Fatal("expected SlotCompleted event")
	}
}
