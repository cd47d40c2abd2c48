package metric_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/evolatent"
	"github.com/hupe1980/evolatent/metric"
)

var _ evolatent.MetricsCollector = (*metric.PrometheusCollector)(nil)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			name := f.GetName()
			for _, l := range m.GetLabel() {
				name += "/" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[name] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[name] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metric.NewPrometheusCollector(reg, "test")
	require.NoError(t, err)

	c.RecordGenerate("global", time.Second, nil)
	c.RecordGenerate("global", time.Second, errors.New("boom"))
	c.RecordRender(4, 2*time.Second, nil)
	c.RecordRender(4, time.Second, errors.New("boom"))
	c.RecordPersist(3, 1024, time.Millisecond, nil)
	c.RecordRejected("busy")
	c.RecordRejected("busy")
	c.RecordMutationRate(0.49)

	got := gather(t, reg)
	assert.Equal(t, 1.0, got["test_generate_duration_seconds/global/success"])
	assert.Equal(t, 1.0, got["test_generate_duration_seconds/global/error"])
	assert.Equal(t, 4.0, got["test_rendered_images_total"])
	assert.Equal(t, 1024.0, got["test_persisted_bytes_total"])
	assert.Equal(t, 3.0, got["test_step"])
	assert.Equal(t, 2.0, got["test_rejected_total/busy"])
	assert.InDelta(t, 0.49, got["test_mutation_rate"], 1e-12)
}

func TestPrometheusCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metric.NewPrometheusCollector(reg, "")
	require.NoError(t, err)

	_, err = metric.NewPrometheusCollector(reg, "")
	assert.Error(t, err)
}
