// Package metrics provides a lightweight, Prometheus-compatible metrics
// collector. It renders the text exposition format without the
// prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the process-wide collector used by the predefined metrics.
var Collector = NewMetricsCollector("aromabot")

// MetricsCollector aggregates counters, gauges, and histograms.
type MetricsCollector struct {
	namespace  string
	counters   sync.Map // key -> *Counter
	gauges     sync.Map // key -> *Gauge
	histograms sync.Map // key -> *Histogram
	startTime  time.Time
}

func NewMetricsCollector(namespace string) *MetricsCollector {
	return &MetricsCollector{namespace: namespace, startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of observed values. The +Inf bucket is
// implied by count.
type Histogram struct {
	name    string
	help    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	buckets []histBucket
}

type histBucket struct {
	le    float64
	count int64
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := range h.buckets {
		if v <= h.buckets[i].le {
			h.buckets[i].count++
		}
	}
}

// ObserveSince records the seconds elapsed since start.
func (h *Histogram) ObserveSince(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// --- Registration helpers ---

func (c *MetricsCollector) fullName(name string) string {
	if c.namespace == "" {
		return name
	}
	return c.namespace + "_" + name
}

// Counter returns or creates a counter. name is given without the
// namespace prefix; labels is a rendered label set such as `kind="x"`.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	name = c.fullName(name)
	key := name + "{" + labels + "}"
	if v, ok := c.counters.Load(key); ok {
		return v.(*Counter)
	}
	actual, _ := c.counters.LoadOrStore(key, &Counter{name: name, help: help, labels: labels})
	return actual.(*Counter)
}

// Gauge returns or creates a gauge.
func (c *MetricsCollector) Gauge(name, help, labels string) *Gauge {
	name = c.fullName(name)
	key := name + "{" + labels + "}"
	if v, ok := c.gauges.Load(key); ok {
		return v.(*Gauge)
	}
	actual, _ := c.gauges.LoadOrStore(key, &Gauge{name: name, help: help, labels: labels})
	return actual.(*Gauge)
}

// Histogram returns or creates a histogram. Buckets are only used on
// creation.
func (c *MetricsCollector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	name = c.fullName(name)
	key := name + "{" + labels + "}"
	if v, ok := c.histograms.Load(key); ok {
		return v.(*Histogram)
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	hb := make([]histBucket, len(sorted))
	for i, b := range sorted {
		hb[i] = histBucket{le: b}
	}
	actual, _ := c.histograms.LoadOrStore(key, &Histogram{name: name, help: help, labels: labels, buckets: hb})
	return actual.(*Histogram)
}

// --- Prometheus text rendering ---

// sortedValues returns the map values ordered by key so the exposition is
// stable between scrapes.
func sortedValues(m *sync.Map) []any {
	var keys []string
	values := make(map[string]any)
	m.Range(func(k, v any) bool {
		keys = append(keys, k.(string))
		values[k.(string)] = v
		return true
	})
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = values[k]
	}
	return out
}

func series(name, labels string) string {
	if labels == "" {
		return name
	}
	return name + "{" + labels + "}"
}

// Handler returns an http.HandlerFunc that renders metrics in Prometheus text format.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, c.Render())
	}
}

// Render returns the full exposition text.
func (c *MetricsCollector) Render() string {
	var sb strings.Builder

	uptime := c.fullName("uptime_seconds")
	fmt.Fprintf(&sb, "# HELP %s Time since start in seconds\n", uptime)
	fmt.Fprintf(&sb, "# TYPE %s gauge\n", uptime)
	fmt.Fprintf(&sb, "%s %d\n", uptime, int64(c.Uptime().Seconds()))

	helpWritten := make(map[string]bool)
	header := func(name, help, kind string) {
		if helpWritten[name] {
			return
		}
		fmt.Fprintf(&sb, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&sb, "# TYPE %s %s\n", name, kind)
		helpWritten[name] = true
	}

	for _, v := range sortedValues(&c.counters) {
		ctr := v.(*Counter)
		header(ctr.name, ctr.help, "counter")
		fmt.Fprintf(&sb, "%s %d\n", series(ctr.name, ctr.labels), ctr.Value())
	}

	for _, v := range sortedValues(&c.gauges) {
		g := v.(*Gauge)
		header(g.name, g.help, "gauge")
		fmt.Fprintf(&sb, "%s %d\n", series(g.name, g.labels), g.Value())
	}

	for _, v := range sortedValues(&c.histograms) {
		h := v.(*Histogram)
		header(h.name, h.help, "histogram")

		h.mu.Lock()
		prefix := ""
		if h.labels != "" {
			prefix = h.labels + ","
		}
		for _, b := range h.buckets {
			if math.IsInf(b.le, 1) {
				continue
			}
			fmt.Fprintf(&sb, "%s_bucket{%sle=\"%g\"} %d\n", h.name, prefix, b.le, b.count)
		}
		fmt.Fprintf(&sb, "%s_bucket{%sle=\"+Inf\"} %d\n", h.name, prefix, h.count)
		fmt.Fprintf(&sb, "%s %d\n", series(h.name+"_count", h.labels), h.count)
		fmt.Fprintf(&sb, "%s %f\n", series(h.name+"_sum", h.labels), h.sum)
		h.mu.Unlock()
	}

	return sb.String()
}

// --- Pre-defined metrics used across the application ---

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

var (
	MessagesReceived  = Collector.Counter("messages_received_total", "Webhook messages accepted for dispatch", "")
	MessagesRejected  = Collector.Counter("messages_rejected_total", "Webhook payloads rejected at validation", "")
	MessagesDuplicate = Collector.Counter("messages_duplicate_total", "Webhook redeliveries acknowledged without dispatch", "")
	MessagesIgnored   = Collector.Counter("messages_ignored_total", "Webhook events acknowledged but not dispatched", "")
	RepliesDelivered  = Collector.Counter("replies_delivered_total", "Replies delivered to senders", "")
	DeliveryFailures  = Collector.Counter("delivery_failures_total", "Outbound sends that failed", "")
	Escalations       = Collector.Counter("escalations_total", "Handoff summaries delivered to the escalation recipient", "")
	DispatchPanics    = Collector.Counter("dispatch_panics_total", "Dispatch units recovered from a panic", "")
	QueueDepth        = Collector.Gauge("queue_depth", "Messages waiting for a dispatch worker", "")

	DispatchLatency = Collector.Histogram("dispatch_latency_seconds", "End-to-end dispatch latency in seconds", "", latencyBuckets)
)

// Intent returns the per-kind intent counter.
func Intent(kind string) *Counter {
	return Collector.Counter("intents_total", "Messages classified per intent", fmt.Sprintf("kind=%q", kind))
}

// UpstreamLatency returns the latency histogram of one external service.
func UpstreamLatency(service string) *Histogram {
	return Collector.Histogram("upstream_latency_seconds", "External call latency in seconds",
		fmt.Sprintf("service=%q", service), latencyBuckets)
}
