package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayback_Recorder(t *testing.T) {
	p := NewPlayback()

	p.SlotAcquired()
	p.SlotAcquired()
	p.SlotAcquired()
	p.SlotReleased()
	p.TrackFailed("unavailable")
	p.TrackFailed("unavailable")
	p.TrackFailed("platform_error")
	p.FadeStarted("in")
	p.FadeStarted("out")
	p.FadeStarted("in")
	p.FadeCancelled()

	assert.Equal(t, 2.0, testutil.ToFloat64(p.activeSlots))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.slotsAcquired))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.slotsReleased))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.trackFailures.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.trackFailures.WithLabelValues("platform_error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.fadesStarted.WithLabelValues("in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fadesStarted.WithLabelValues("out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fadesCancelled))
}

func TestPlayback_Handler(t *testing.T) {
	p := NewPlayback()
	p.SlotAcquired()

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sleepmix_playback_slots_held 1")
	assert.Contains(t, string(body), "sleepmix_playback_slots_acquired_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
