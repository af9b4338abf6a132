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

// Simple, dependency-free metrics with Prometheus text exposition.
// Atomic values, mutex-protected registries.

// Counter is a monotonically increasing number.
type Counter struct {
	name string
	help string
	val  int64
}

func (c *Counter) Inc(delta int64) { atomic.AddInt64(&c.val, delta) }
func (c *Counter) Get() int64      { return atomic.LoadInt64(&c.val) }

// Gauge is an arbitrary number that can go up and down.
type Gauge struct {
	name string
	help string
	f64  uint64 // float64 bits
}

func (g *Gauge) SetFloat64(v float64)     { atomic.StoreUint64(&g.f64, math.Float64bits(v)) }
func (g *Gauge) AddFloat64(delta float64) { addFloat(&g.f64, delta) }
func (g *Gauge) GetFloat64() float64      { return math.Float64frombits(atomic.LoadUint64(&g.f64)) }

// CounterVec is a family of counters sharing a name and label keys,
// e.g. http_requests_total{route="/api/v1/match",code="2xx"}.
type CounterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	series map[string]*Counter // key: joined label values
}

// With returns the counter for the given label values, creating it on first
// use. Missing values are treated as empty; extra values are ignored.
func (v *CounterVec) With(values ...string) *Counter {
	vals := make([]string, len(v.labels))
	copy(vals, values)
	key := strings.Join(vals, "\xff")

	v.mu.RLock()
	c, ok := v.series[key]
	v.mu.RUnlock()
	if ok {
		return c
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.series[key]; ok {
		return c
	}
	c = &Counter{name: v.name + formatLabels(v.labels, vals)}
	v.series[key] = c
	return c
}

func formatLabels(keys, vals []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, vals[i])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Histogram with fixed buckets (per-bucket counts, cumulated on export) and sum/count.
type Histogram struct {
	name    string
	help    string
	buckets []float64 // sorted ascending, last is +Inf
	counts  []uint64
	sum     uint64 // float64 bits
	count   uint64
}

func (h *Histogram) Observe(v float64) {
	i := sort.SearchFloat64s(h.buckets, v)
	if i == len(h.buckets) {
		i = len(h.buckets) - 1
	}
	atomic.AddUint64(&h.counts[i], 1)
	atomic.AddUint64(&h.count, 1)
	addFloat(&h.sum, v)
}

func (h *Histogram) Count() uint64 { return atomic.LoadUint64(&h.count) }

func addFloat(bits *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(bits)
		nv := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(bits, old, math.Float64bits(nv)) {
			return
		}
	}
}

// Registry holds all metrics.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	vecs       map[string]*CounterVec
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		vecs:       make(map[string]*CounterVec),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

var Default = NewRegistry()

func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{name: sanitize(name), help: help}
	r.counters[name] = c
	return c
}

func (r *Registry) CounterVec(name, help string, labels ...string) *CounterVec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vecs[name]; ok {
		return v
	}
	v := &CounterVec{name: sanitize(name), help: help, labels: labels, series: make(map[string]*Counter)}
	r.vecs[name] = v
	return v
}

func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{name: sanitize(name), help: help}
	r.gauges[name] = g
	return g
}

func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	sorted := append([]float64{}, buckets...)
	sort.Float64s(sorted)
	if len(sorted) == 0 || !math.IsInf(sorted[len(sorted)-1], 1) {
		sorted = append(sorted, math.Inf(1))
	}
	h := &Histogram{name: sanitize(name), help: help, buckets: sorted, counts: make([]uint64, len(sorted))}
	r.histograms[name] = h
	return h
}

// Handler returns an http.Handler that exposes metrics in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		r.mu.RLock()
		counters := sortedValues(r.counters)
		vecs := sortedValues(r.vecs)
		gauges := sortedValues(r.gauges)
		hists := sortedValues(r.histograms)
		r.mu.RUnlock()

		for _, c := range counters {
			writeHeader(w, c.name, c.help, "counter")
			fmt.Fprintf(w, "%s %d\n", c.name, c.Get())
		}
		for _, v := range vecs {
			writeHeader(w, v.name, v.help, "counter")
			v.mu.RLock()
			series := sortedValues(v.series)
			v.mu.RUnlock()
			for _, c := range series {
				fmt.Fprintf(w, "%s %d\n", c.name, c.Get())
			}
		}
		for _, g := range gauges {
			writeHeader(w, g.name, g.help, "gauge")
			fmt.Fprintf(w, "%s %g\n", g.name, g.GetFloat64())
		}
		for _, h := range hists {
			writeHeader(w, h.name, h.help, "histogram")
			var cum uint64
			for i, ub := range h.buckets {
				cum += atomic.LoadUint64(&h.counts[i])
				le := fmt.Sprintf("%g", ub)
				if math.IsInf(ub, 1) {
					le = "+Inf"
				}
				fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", h.name, le, cum)
			}
			fmt.Fprintf(w, "%s_sum %g\n", h.name, math.Float64frombits(atomic.LoadUint64(&h.sum)))
			fmt.Fprintf(w, "%s_count %d\n", h.name, h.Count())
		}
	})
}

// Handler exposes the Default registry.
func Handler() http.Handler { return Default.Handler() }

func writeHeader(w http.ResponseWriter, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, strings.ReplaceAll(help, "\n", " "))
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func sortedValues[T any](m map[string]T) []T {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	out := make([]T, 0, len(ks))
	for _, k := range ks {
		out = append(out, m[k])
	}
	return out
}

// Timer observes elapsed seconds into a histogram.
type Timer struct {
	h     *Histogram
	start time.Time
}

func (h *Histogram) Start() Timer { return Timer{h: h, start: time.Now()} }

func (t Timer) Observe() {
	if t.h != nil {
		t.h.Observe(time.Since(t.start).Seconds())
	}
}
