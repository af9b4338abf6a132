package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestLatencySnapshot(t *testing.T) {
	l := NewLatency(4)
	if c, avg, _, _ := l.Snapshot(); c != 0 || avg != 0 {
		t.Fatalf("empty snapshot = %d, %v", c, avg)
	}
	for _, v := range []float64{1, 2, 3, 4, 5, 6} {
		l.Observe(v)
	}
	count, avg, p50, p95 := l.Snapshot()
	if count != 6 {
		t.Errorf("count = %d, want 6", count)
	}
	// ring keeps 3,4,5,6
	if avg != 4.5 || p50 != 5 || p95 != 6 {
		t.Errorf("avg, p50, p95 = %v, %v, %v; want 4.5, 5, 6", avg, p50, p95)
	}
}

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	l := NewLatency(8)
	r.Use(Middleware(l))
	r.HandleFunc("/locations/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := httpRequests.With("/locations/{id}", http.MethodGet, "404").Get()
	for _, p := range []string{"/locations/1", "/locations/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	if got := httpRequests.With("/locations/{id}", http.MethodGet, "404").Get() - before; got != 2 {
		t.Errorf("route counter delta = %d, want 2", got)
	}
	if c, _, _, _ := l.Snapshot(); c != 2 {
		t.Errorf("latency count = %d, want 2", c)
	}
}
