package output

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	Frames      prometheus.Counter
	Packets     *prometheus.CounterVec
	SendErrors  *prometheus.CounterVec
	Skipped     *prometheus.CounterVec
	TickSeconds prometheus.Histogram
	Universes   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumen_output_frames_total",
			Help: "Frames built by the output engine.",
		}),
		Packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumen_output_packets_total",
			Help: "Packets sent, by protocol.",
		}, []string{"protocol"}),
		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumen_output_send_errors_total",
			Help: "Packets that failed to send, by protocol.",
		}, []string{"protocol"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumen_output_skipped_universes_total",
			Help: "Universes skipped in a tick, by protocol and reason.",
		}, []string{"protocol", "reason"}),
		TickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lumen_output_tick_seconds",
			Help:    "Time spent building and sending one frame.",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}),
		Universes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumen_output_universes",
			Help: "Universes in the last frame.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Frames, m.Packets, m.SendErrors, m.Skipped, m.TickSeconds, m.Universes)
	}
	return m
}
