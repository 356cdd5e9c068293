package metrics

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterLabelOrderIsIrrelevant(t *testing.T) {
	c := NewCollector()
	c.IncCounter("images_total", map[string]string{"status": "ok", "format": "jpg"})
	c.AddCounter("images_total", 2, map[string]string{"format": "jpg", "status": "ok"})

	assert.Equal(t, 3.0, c.Value("images_total", map[string]string{"status": "ok", "format": "jpg"}))
	assert.Len(t, c.GetMetrics(), 1)
}

func TestValueAbsent(t *testing.T) {
	c := NewCollector()
	assert.Nil(t, c.GetMetric("missing", nil))
	assert.Zero(t, c.Value("missing", nil))
}

func TestGaugeReplaces(t *testing.T) {
	c := NewCollector()
	c.SetGauge("concurrency", 4, nil)
	c.SetGauge("concurrency", 2, nil)

	m := c.GetMetric("concurrency", nil)
	require.NotNil(t, m)
	assert.Equal(t, TypeGauge, m.Type)
	assert.Equal(t, 2.0, m.Value)
}

func TestHistogramKeepsBoundedHistory(t *testing.T) {
	c := NewCollector()
	for i := 0; i < historyLimit+10; i++ {
		c.ObserveHistogram("duration_seconds", 1, nil)
	}

	m := c.GetMetric("duration_seconds", nil)
	require.NotNil(t, m)
	assert.Len(t, m.History, historyLimit)
	assert.Equal(t, int64(historyLimit+10), m.Count())
	assert.Equal(t, float64(historyLimit+10), m.Sum())
}

func TestWritePrometheusHistogramTotalsPastHistoryLimit(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 1500; i++ {
		c.ObserveHistogram("imgpipe_image_duration_seconds", 1, nil)
	}

	var buf bytes.Buffer
	require.NoError(t, c.WritePrometheus(&buf))
	assert.Equal(t, "imgpipe_image_duration_seconds_sum 1500\n"+
		"imgpipe_image_duration_seconds_count 1500\n", buf.String())
}

func TestGetMetricsReturnsCopies(t *testing.T) {
	c := NewCollector()
	c.IncCounter("images_total", map[string]string{"status": "ok"})

	for _, m := range c.GetMetrics() {
		m.Value = 100
		m.Labels["status"] = "changed"
	}
	assert.Equal(t, 1.0, c.Value("images_total", map[string]string{"status": "ok"}))
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.IncCounter("images_total", nil)
	c.Reset()
	assert.Empty(t, c.GetMetrics())
}

func TestWritePrometheus(t *testing.T) {
	c := NewCollector()
	c.IncCounter("imgpipe_images_total", map[string]string{"status": "ok"})
	c.IncCounter("imgpipe_images_total", map[string]string{"status": "failed", "error_type": "decode"})
	c.ObserveHistogram("imgpipe_image_duration_seconds", 0.5, nil)
	c.ObserveHistogram("imgpipe_image_duration_seconds", 0.25, nil)

	var buf bytes.Buffer
	require.NoError(t, c.WritePrometheus(&buf))

	want := "imgpipe_image_duration_seconds_sum 0.75\n" +
		"imgpipe_image_duration_seconds_count 2\n" +
		"imgpipe_images_total{error_type=\"decode\",status=\"failed\"} 1\n" +
		"imgpipe_images_total{status=\"ok\"} 1\n"
	assert.Equal(t, want, buf.String())
}

func TestConcurrentCounters(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncCounter("images_total", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50.0, c.Value("images_total", nil))
}
