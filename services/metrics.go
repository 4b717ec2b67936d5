package services

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricsService provides application metrics and monitoring
type MetricsService interface {
	IncrementCounter(name string, tags map[string]string)
	RecordDuration(name string, duration time.Duration, tags map[string]string)
	SetGauge(name string, value float64, tags map[string]string)
	GetMetrics() map[string]interface{}
}

// Counter represents a monotonically increasing counter
type Counter struct {
	Value int64             `json:"value"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// Histogram represents duration measurements
type Histogram struct {
	Count   int64             `json:"count"`
	Sum     time.Duration     `json:"sum"`
	Min     time.Duration     `json:"min"`
	Max     time.Duration     `json:"max"`
	Average time.Duration     `json:"average"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// Gauge represents a value that can go up and down
type Gauge struct {
	Value float64           `json:"value"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// InMemoryMetrics implements MetricsService using in-memory storage
type InMemoryMetrics struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	gauges     map[string]*Gauge
	startTime  time.Time
}

// NewInMemoryMetrics creates a new in-memory metrics service
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		gauges:     make(map[string]*Gauge),
		startTime:  time.Now(),
	}
}

// IncrementCounter increments a counter metric
func (m *InMemoryMetrics) IncrementCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := metricKey(name, tags)
	if counter, exists := m.counters[key]; exists {
		counter.Value++
	} else {
		m.counters[key] = &Counter{Value: 1, Tags: tags}
	}
}

// RecordDuration records a duration measurement
func (m *InMemoryMetrics) RecordDuration(name string, duration time.Duration, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := metricKey(name, tags)
	histogram, exists := m.histograms[key]
	if !exists {
		m.histograms[key] = &Histogram{
			Count:   1,
			Sum:     duration,
			Min:     duration,
			Max:     duration,
			Average: duration,
			Tags:    tags,
		}
		return
	}

	histogram.Count++
	histogram.Sum += duration
	if duration < histogram.Min {
		histogram.Min = duration
	}
	if duration > histogram.Max {
		histogram.Max = duration
	}
	histogram.Average = histogram.Sum / time.Duration(histogram.Count)
}

// SetGauge sets a gauge value
func (m *InMemoryMetrics) SetGauge(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gauges[metricKey(name, tags)] = &Gauge{Value: value, Tags: tags}
}

// GetMetrics returns all collected metrics
func (m *InMemoryMetrics) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := make(map[string]interface{})

	metrics["system"] = map[string]interface{}{
		"uptime":     time.Since(m.startTime).String(),
		"start_time": m.startTime.Format(time.RFC3339),
	}

	if len(m.counters) > 0 {
		counters := make(map[string]*Counter, len(m.counters))
		for k, v := range m.counters {
			counters[k] = v
		}
		metrics["counters"] = counters
	}
	if len(m.histograms) > 0 {
		histograms := make(map[string]*Histogram, len(m.histograms))
		for k, v := range m.histograms {
			histograms[k] = v
		}
		metrics["histograms"] = histograms
	}
	if len(m.gauges) > 0 {
		gauges := make(map[string]*Gauge, len(m.gauges))
		for k, v := range m.gauges {
			gauges[k] = v
		}
		metrics["gauges"] = gauges
	}

	return metrics
}

// metricKey builds a stable key from a metric name and its tags
func metricKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("," + k + "=" + tags[k])
	}
	return b.String()
}
