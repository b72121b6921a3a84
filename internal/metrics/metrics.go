// Package metrics collects keymapd's counters, gauges and latency
// histograms and dumps them when the daemon exits, either in the
// Prometheus text format read by node_exporter's textfile collector or
// as JSON.
package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Labels are constant labels attached to one metric.
type Labels map[string]string

// String renders labels in exposition syntax, keys sorted.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}

	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(l))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, l[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Counter only goes up.
type Counter struct {
	name   string
	help   string
	labels Labels
	value  atomic.Uint64
}

// Inc adds one.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Value returns the current count.
func (c *Counter) Value() uint64 {
	return c.value.Load()
}

// Gauge holds the latest value set.
type Gauge struct {
	name   string
	help   string
	labels Labels
	value  atomic.Int64
}

// Set stores v.
func (g *Gauge) Set(v int64) {
	g.value.Store(v)
}

// Value returns the stored value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

// LatencyBuckets suit per-event dispatch times, in seconds.
var LatencyBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1,
}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	name    string
	help    string
	labels  Labels
	buckets []float64

	mu     sync.Mutex
	counts []uint64 // per bucket, last slot is +Inf
	sum    float64
	count  uint64
}

func newHistogram(name, help string, labels Labels, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = LatencyBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)

	return &Histogram{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: sorted,
		counts:  make([]uint64, len(sorted)+1),
	}
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++
	// le semantics: v lands in the first bucket whose bound is >= v.
	h.counts[sort.SearchFloat64s(h.buckets, v)]++
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Mean returns the average observation, 0 when empty.
func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mean()
}

func (h *Histogram) mean() float64 {
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// cumulative returns the running bucket totals; caller holds h.mu.
func (h *Histogram) cumulative() []uint64 {
	out := make([]uint64, len(h.counts))
	var total uint64
	for i, c := range h.counts {
		total += c
		out[i] = total
	}
	return out
}

// Registry owns a namespace of metrics.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram

	namespace string
	subsystem string
}

// NewRegistry creates an empty registry. Metric names are prefixed with
// the non-empty parts of namespace and subsystem.
func NewRegistry(namespace, subsystem string) *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		namespace:  namespace,
		subsystem:  subsystem,
	}
}

func (r *Registry) fullName(name string) string {
	var parts []string
	if r.namespace != "" {
		parts = append(parts, r.namespace)
	}
	if r.subsystem != "" {
		parts = append(parts, r.subsystem)
	}
	return strings.Join(append(parts, name), "_")
}

// RegisterCounter registers a counter, or returns the one already
// registered under name.
func (r *Registry) RegisterCounter(name, help string, labels Labels) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	fullName := r.fullName(name)
	if c, ok := r.counters[fullName]; ok {
		return c
	}
	c := &Counter{name: fullName, help: help, labels: labels}
	r.counters[fullName] = c
	return c
}

// RegisterGauge registers a gauge, or returns the existing one.
func (r *Registry) RegisterGauge(name, help string, labels Labels) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	fullName := r.fullName(name)
	if g, ok := r.gauges[fullName]; ok {
		return g
	}
	g := &Gauge{name: fullName, help: help, labels: labels}
	r.gauges[fullName] = g
	return g
}

// RegisterHistogram registers a histogram, or returns the existing one.
// Nil buckets select LatencyBuckets.
func (r *Registry) RegisterHistogram(name, help string, labels Labels, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	fullName := r.fullName(name)
	if h, ok := r.histograms[fullName]; ok {
		return h
	}
	h := newHistogram(fullName, help, labels, buckets)
	r.histograms[fullName] = h
	return h
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WritePrometheus writes every metric in the Prometheus text format,
// sorted by name.
func (r *Registry) WritePrometheus(w io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name)
		fmt.Fprintf(&buf, "%s%s %d\n", c.name, c.labels, c.Value())
	}

	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s gauge\n", g.name, g.help, g.name)
		fmt.Fprintf(&buf, "%s%s %d\n", g.name, g.labels, g.Value())
	}

	for _, name := range sortedKeys(r.histograms) {
		h := r.histograms[name]
		h.mu.Lock()
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)

		// le is merged into the constant labels.
		open := "{"
		if s := h.labels.String(); s != "" {
			open = s[:len(s)-1] + ","
		}
		cum := h.cumulative()
		for i, bound := range h.buckets {
			fmt.Fprintf(&buf, "%s_bucket%sle=\"%g\"} %d\n", h.name, open, bound, cum[i])
		}
		fmt.Fprintf(&buf, "%s_bucket%sle=\"+Inf\"} %d\n", h.name, open, cum[len(h.buckets)])
		fmt.Fprintf(&buf, "%s_sum%s %g\n", h.name, h.labels, h.sum)
		fmt.Fprintf(&buf, "%s_count%s %d\n", h.name, h.labels, h.count)
		h.mu.Unlock()
	}

	_, err := w.Write(buf.Bytes())
	return err
}

type jsonMetric struct {
	Type    string            `json:"type"`
	Help    string            `json:"help"`
	Labels  Labels            `json:"labels,omitempty"`
	Value   any               `json:"value,omitempty"`
	Buckets map[string]uint64 `json:"buckets,omitempty"`
	Sum     float64           `json:"sum,omitempty"`
	Count   uint64            `json:"count,omitempty"`
	Mean    float64           `json:"mean,omitempty"`
}

// WriteJSON writes every metric as one indented JSON object keyed by
// metric name.
func (r *Registry) WriteJSON(w io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]jsonMetric, len(r.counters)+len(r.gauges)+len(r.histograms))
	for _, c := range r.counters {
		out[c.name] = jsonMetric{Type: "counter", Help: c.help, Labels: c.labels, Value: c.Value()}
	}
	for _, g := range r.gauges {
		out[g.name] = jsonMetric{Type: "gauge", Help: g.help, Labels: g.labels, Value: g.Value()}
	}
	for _, h := range r.histograms {
		h.mu.Lock()
		cum := h.cumulative()
		buckets := make(map[string]uint64, len(cum))
		for i, bound := range h.buckets {
			buckets[fmt.Sprintf("%g", bound)] = cum[i]
		}
		buckets["+Inf"] = cum[len(h.buckets)]
		out[h.name] = jsonMetric{
			Type:    "histogram",
			Help:    h.help,
			Labels:  h.labels,
			Buckets: buckets,
			Sum:     h.sum,
			Count:   h.count,
			Mean:    h.mean(),
		}
		h.mu.Unlock()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteFile atomically replaces path with a dump of the registry: JSON
// when path ends in .json, the Prometheus text format otherwise.
func (r *Registry) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".metrics-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	write := r.WritePrometheus
	if strings.EqualFold(filepath.Ext(path), ".json") {
		write = r.WriteJSON
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metrics file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod metrics file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
