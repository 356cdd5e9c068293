// Package metrics is a small in-process metric store. Batch runs record
// outcome counters and duration samples into a Collector; the CLI renders it
// in Prometheus text format on request.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	TypeCounter   = "counter"
	TypeGauge     = "gauge"
	TypeHistogram = "histogram"
)

// historyLimit caps the samples kept per histogram.
const historyLimit = 1000

// Collector stores counters, gauges and histograms keyed by name and labels.
type Collector struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
	now     func() time.Time
}

// Metric is one series.
type Metric struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	History   []float64         `json:"history,omitempty"`
	Timestamp int64             `json:"timestamp"`

	// Running totals over every observation, not just the kept History.
	SampleCount int64   `json:"count,omitempty"`
	SampleSum   float64 `json:"sum,omitempty"`
}

// Count is the number of samples a histogram has seen.
func (m *Metric) Count() int64 {
	return m.SampleCount
}

// Sum totals every sample a histogram has seen.
func (m *Metric) Sum() float64 {
	return m.SampleSum
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		metrics: make(map[string]*Metric),
		now:     time.Now,
	}
}

// IncCounter adds one to a counter.
func (c *Collector) IncCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

// AddCounter adds value to a counter.
func (c *Collector) AddCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	if metric, exists := c.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = c.now().Unix()
		return
	}
	c.metrics[key] = &Metric{
		Name:      name,
		Type:      TypeCounter,
		Value:     value,
		Labels:    copyLabels(labels),
		Timestamp: c.now().Unix(),
	}
}

// SetGauge replaces a gauge value.
func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics[buildKey(name, labels)] = &Metric{
		Name:      name,
		Type:      TypeGauge,
		Value:     value,
		Labels:    copyLabels(labels),
		Timestamp: c.now().Unix(),
	}
}

// ObserveHistogram records one sample.
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	if metric, exists := c.metrics[key]; exists {
		metric.History = append(metric.History, value)
		if len(metric.History) > historyLimit {
			metric.History = metric.History[1:]
		}
		metric.Value = value
		metric.SampleCount++
		metric.SampleSum += value
		metric.Timestamp = c.now().Unix()
		return
	}
	c.metrics[key] = &Metric{
		Name:        name,
		Type:        TypeHistogram,
		Value:       value,
		Labels:      copyLabels(labels),
		History:     []float64{value},
		Timestamp:   c.now().Unix(),
		SampleCount: 1,
		SampleSum:   value,
	}
}

// buildKey joins name and labels sorted by label name, so the same label set
// always maps to the same series.
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range sortedKeys(labels) {
		sb.WriteString(":")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(labels[k])
	}
	return sb.String()
}

func sortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// GetMetrics returns a copy of every series.
func (c *Collector) GetMetrics() map[string]*Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*Metric, len(c.metrics))
	for k, v := range c.metrics {
		m := *v
		m.Labels = copyLabels(v.Labels)
		m.History = append([]float64(nil), v.History...)
		result[k] = &m
	}
	return result
}

// GetMetric returns a copy of one series, or nil when it was never recorded.
func (c *Collector) GetMetric(name string, labels map[string]string) *Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	metric, ok := c.metrics[buildKey(name, labels)]
	if !ok {
		return nil
	}
	m := *metric
	m.Labels = copyLabels(metric.Labels)
	m.History = append([]float64(nil), metric.History...)
	return &m
}

// Value returns a counter or gauge value, 0 when absent.
func (c *Collector) Value(name string, labels map[string]string) float64 {
	if m := c.GetMetric(name, labels); m != nil {
		return m.Value
	}
	return 0
}

// Reset drops every series.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]*Metric)
}

// WritePrometheus renders every series in Prometheus text format, sorted by
// key. Histograms are written as _sum and _count.
func (c *Collector) WritePrometheus(w io.Writer) error {
	metrics := c.GetMetrics()
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		metric := metrics[key]
		labels := formatLabels(metric.Labels)
		switch metric.Type {
		case TypeCounter, TypeGauge:
			fmt.Fprintf(&sb, "%s%s %g\n", metric.Name, labels, metric.Value)
		case TypeHistogram:
			fmt.Fprintf(&sb, "%s_sum%s %g\n", metric.Name, labels, metric.Sum())
			fmt.Fprintf(&sb, "%s_count%s %d\n", metric.Name, labels, metric.Count())
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(labels))
	for _, k := range sortedKeys(labels) {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(pairs, ",") + "}"
}
