package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	pp "net/http/pprof"

	"github.com/gorilla/mux"

	"pickup-address-matcher/pkg/metrics"
)

// Latency keeps the last N request durations (milliseconds) for quick
// percentile snapshots on the admin port.
type Latency struct {
	mu        sync.Mutex
	durations []float64
	idx       int
	count     int64
	n         int
}

func NewLatency(capacity int) *Latency {
	if capacity <= 0 {
		capacity = 256
	}
	return &Latency{durations: make([]float64, capacity), n: capacity}
}

func (l *Latency) Observe(ms float64) {
	l.mu.Lock()
	l.durations[l.idx] = ms
	l.idx = (l.idx + 1) % l.n
	l.count++
	l.mu.Unlock()
}

// Snapshot returns the total count plus avg, p50 and p95 over the ring.
func (l *Latency) Snapshot() (count int64, avg, p50, p95 float64) {
	l.mu.Lock()
	var samples []float64
	if l.count < int64(l.n) {
		samples = append(samples, l.durations[:l.idx]...)
	} else {
		samples = append(samples, l.durations...)
	}
	count = l.count
	l.mu.Unlock()

	if len(samples) == 0 {
		return count, 0, 0, 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	sort.Float64s(samples)
	return count, sum / float64(len(samples)), samples[len(samples)*50/100], samples[len(samples)*95/100]
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

var (
	httpRequests = metrics.Default.CounterVec("http_requests_total", "HTTP requests by route, method and status", "route", "method", "status")
	httpDuration = metrics.Default.Histogram("http_request_duration_seconds", "HTTP request latency", []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5})
)

// Middleware records request counts labelled by the matched mux route
// template, so /locations/7 and /locations/8 share one series.
func Middleware(l *Latency) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			httpRequests.With(routeName(r), r.Method, strconv.Itoa(sw.status)).Inc(1)
			httpDuration.Observe(dur.Seconds())
			if l != nil {
				l.Observe(float64(dur.Microseconds()) / 1000.0)
			}
		})
	}
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// RuntimeHandler exposes runtime stats and the latency snapshot as JSON.
func RuntimeHandler(l *Latency) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		count, avg, p50, p95 := l.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"time":             time.Now().Format(time.RFC3339),
			"requests_total":   count,
			"duration_ms_avg":  avg,
			"duration_ms_p50":  p50,
			"duration_ms_p95":  p95,
			"goroutines":       runtime.NumGoroutine(),
			"mem_alloc_bytes":  ms.Alloc,
			"heap_inuse_bytes": ms.HeapInuse,
			"gc_num":           ms.NumGC,
		})
	})
}

// RegisterPprof mounts the standard pprof handlers under /debug/pprof/.
func RegisterPprof(m *http.ServeMux) {
	m.HandleFunc("/debug/pprof/", pp.Index)
	m.HandleFunc("/debug/pprof/cmdline", pp.Cmdline)
	m.HandleFunc("/debug/pprof/profile", pp.Profile)
	m.HandleFunc("/debug/pprof/symbol", pp.Symbol)
	m.HandleFunc("/debug/pprof/trace", pp.Trace)
}

// EnableProfiling toggles block and mutex profiling rates.
func EnableProfiling(enabled bool) {
	if enabled {
		runtime.SetBlockProfileRate(1)
		runtime.SetMutexProfileFraction(5)
		return
	}
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
}
