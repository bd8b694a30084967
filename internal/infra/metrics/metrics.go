// Package metrics exposes playback metrics to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sleepmix"

// Playback collects slot and fade metrics. It implements playback.Recorder.
type Playback struct {
	registry *prometheus.Registry

	activeSlots    prometheus.Gauge
	slotsAcquired  prometheus.Counter
	slotsReleased  prometheus.Counter
	trackFailures  *prometheus.CounterVec
	fadesStarted   *prometheus.CounterVec
	fadesCancelled prometheus.Counter
}

// NewPlayback creates the collectors on a dedicated registry.
// Go runtime and process collectors are registered alongside.
func NewPlayback() *Playback {
	p := &Playback{
		registry: prometheus.NewRegistry(),
		activeSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "slots_held",
			Help:      "Number of audio players currently held (sounding or fading out).",
		}),
		slotsAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "slots_acquired_total",
			Help:      "Audio players opened.",
		}),
		slotsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "slots_released_total",
			Help:      "Audio players released.",
		}),
		trackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "track_failures_total",
			Help:      "Tracks that could not start or stopped on their own, by reason.",
		}, []string{"reason"}),
		fadesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "fades_started_total",
			Help:      "Volume fades started, by direction.",
		}, []string{"direction"}),
		fadesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "fades_cancelled_total",
			Help:      "Fades replaced before completion.",
		}),
	}

	p.registry.MustRegister(
		p.activeSlots,
		p.slotsAcquired,
		p.slotsReleased,
		p.trackFailures,
		p.fadesStarted,
		p.fadesCancelled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Playback) SlotAcquired() {
	p.slotsAcquired.Inc()
	p.activeSlots.Inc()
}

func (p *Playback) SlotReleased() {
	p.slotsReleased.Inc()
	p.activeSlots.Dec()
}

func (p *Playback) TrackFailed(reason string) {
	p.trackFailures.WithLabelValues(reason).Inc()
}

func (p *Playback) FadeStarted(direction string) {
	p.fadesStarted.WithLabelValues(direction).Inc()
}

func (p *Playback) FadeCancelled() {
	p.fadesCancelled.Inc()
}

// Registry returns the registry holding the collectors.
func (p *Playback) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the prometheus exposition format.
func (p *Playback) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
