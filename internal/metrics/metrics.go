// Package metrics exposes the gateway's Prometheus surface: a private
// registry (following facebook-time's sptp exporter, which never touches
// the default global registry) and the gauges/counters each subsystem
// updates directly rather than through a custom Collector.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the process's metric set and the HTTP handler serving it.
type Registry struct {
	reg *prometheus.Registry

	ActiveCalls           prometheus.Gauge
	CallsTotal            *prometheus.CounterVec
	ClockStratum          prometheus.Gauge
	ClockSelectedSource   *prometheus.GaugeVec
	JitterBufferDepth     prometheus.Gauge
	TranscoderPassthrough prometheus.Counter
	TranscoderTranscoded  prometheus.Counter
	CDREmitterDropped     prometheus.Counter
}

// New builds a Registry with every gateway metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		ActiveCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "b2bua",
			Name:      "active_calls",
			Help:      "Calls currently tracked by the call engine.",
		}),
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "b2bua",
			Name:      "calls_total",
			Help:      "Calls terminated, labeled by disposition.",
		}, []string{"disposition"}),
		ClockStratum: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "clock",
			Name:      "selected_stratum",
			Help:      "Stratum of the currently selected timing source.",
		}),
		ClockSelectedSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "clock",
			Name:      "source_selected",
			Help:      "1 for the currently selected timing source, 0 otherwise.",
		}, []string{"source_id", "source_type"}),
		JitterBufferDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "rtp",
			Name:      "jitter_buffer_depth",
			Help:      "Most recently observed jitter buffer occupancy, in packets.",
		}),
		TranscoderPassthrough: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "codec",
			Name:      "transcoder_passthrough_frames_total",
			Help:      "Frames forwarded by the passthrough fast path (same codec both legs).",
		}),
		TranscoderTranscoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "codec",
			Name:      "transcoder_transcoded_frames_total",
			Help:      "Frames that required an actual decode/encode round trip.",
		}),
		CDREmitterDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "events",
			Name:      "cdr_dropped_total",
			Help:      "Events dropped by the channel publisher's bounded queue.",
		}),
	}

	reg.MustRegister(
		m.ActiveCalls,
		m.CallsTotal,
		m.ClockStratum,
		m.ClockSelectedSource,
		m.JitterBufferDepth,
		m.TranscoderPassthrough,
		m.TranscoderTranscoded,
		m.CDREmitterDropped,
	)
	return m
}

// Handler returns the HTTP handler serving this registry's /metrics page.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
