package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector records session metrics into Prometheus collectors.
type PrometheusCollector struct {
	generateLatency *prometheus.HistogramVec
	renderLatency   *prometheus.HistogramVec
	persistLatency  *prometheus.HistogramVec
	renderedImages  prometheus.Counter
	persistedBytes  prometheus.Counter
	lastStep        prometheus.Gauge
	rejected        *prometheus.CounterVec
	mutationRate    prometheus.Gauge
}

// NewPrometheusCollector creates the collectors under namespace and registers
// them with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "evolatent"
	}

	c := &PrometheusCollector{
		generateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_duration_seconds",
			Help:      "Latency of state transitions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "status"}),
		renderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Latency of renderer calls",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"status"}),
		persistLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Latency of step writes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		renderedImages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rendered_images_total",
			Help:      "Total images rendered",
		}),
		persistedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persisted_bytes_total",
			Help:      "Total bytes written for steps",
		}),
		lastStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step",
			Help:      "Index of the latest persisted step",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "Requests refused without a state change",
		}, []string{"reason"}),
		mutationRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mutation_rate",
			Help:      "Current global mutation rate",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.generateLatency,
		c.renderLatency,
		c.persistLatency,
		c.renderedImages,
		c.persistedBytes,
		c.lastStep,
		c.rejected,
		c.mutationRate,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordGenerate implements evolatent.MetricsCollector.
func (c *PrometheusCollector) RecordGenerate(kind string, d time.Duration, err error) {
	c.generateLatency.WithLabelValues(kind, status(err)).Observe(d.Seconds())
}

// RecordRender implements evolatent.MetricsCollector.
func (c *PrometheusCollector) RecordRender(count int, d time.Duration, err error) {
	c.renderLatency.WithLabelValues(status(err)).Observe(d.Seconds())
	if err == nil {
		c.renderedImages.Add(float64(count))
	}
}

// RecordPersist implements evolatent.MetricsCollector.
func (c *PrometheusCollector) RecordPersist(step int, bytes int64, d time.Duration, err error) {
	c.persistLatency.WithLabelValues(status(err)).Observe(d.Seconds())
	if err == nil {
		c.persistedBytes.Add(float64(bytes))
		c.lastStep.Set(float64(step))
	}
}

// RecordRejected implements evolatent.MetricsCollector.
func (c *PrometheusCollector) RecordRejected(reason string) {
	c.rejected.WithLabelValues(reason).Inc()
}

// RecordMutationRate implements evolatent.MetricsCollector.
func (c *PrometheusCollector) RecordMutationRate(rate float64) {
	c.mutationRate.Set(rate)
}
