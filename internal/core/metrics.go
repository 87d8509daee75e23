package core

import (
	"time"

	"github.com/jo-hoe/imageroulette/internal/backend/degradation"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "imageroulette"

// Metrics exposes upload and degradation outcomes to Prometheus
type Metrics struct {
	uploads          *prometheus.CounterVec
	degradeDuration  *prometheus.HistogramVec
	inputBytes       prometheus.Counter
	outputBytes      prometheus.Counter
	views            prometheus.Counter
	visibilityToggle prometheus.Counter
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uploads_total",
			Help:      "Processed uploads by tier and the degradation path that produced the stored image.",
		}, []string{"tier", "path"}),
		degradeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "degradation_duration_seconds",
			Help:      "Time spent selecting a tier and degrading an upload.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"tier"}),
		inputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upload_input_bytes_total",
			Help:      "Bytes received in uploads before degradation.",
		}),
		outputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upload_stored_bytes_total",
			Help:      "Bytes stored after degradation.",
		}),
		views: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "image_views_total",
			Help:      "Image detail views served.",
		}),
		visibilityToggle: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "visibility_toggles_total",
			Help:      "Admin visibility toggles.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.uploads, m.degradeDuration, m.inputBytes, m.outputBytes, m.views, m.visibilityToggle)
	}
	return m
}

func (m *Metrics) ObserveDegradation(tier degradation.Tier, path degradation.Path, duration time.Duration, inputBytes, outputBytes int) {
	m.uploads.WithLabelValues(tier.String(), string(path)).Inc()
	m.degradeDuration.WithLabelValues(tier.String()).Observe(duration.Seconds())
	m.inputBytes.Add(float64(inputBytes))
	m.outputBytes.Add(float64(outputBytes))
}

func (m *Metrics) observeView() {
	m.views.Inc()
}

func (m *Metrics) observeToggle() {
	m.visibilityToggle.Inc()
}

var _ degradation.Observer = (*Metrics)(nil)
