package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pickup-address-matcher/pkg/circuit"
)

func TestCheckAllAggregates(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want Status
	}{
		{"no checkers", nil, StatusHealthy},
		{"all healthy", []error{nil, nil}, StatusHealthy},
		{"one failing", []error{nil, errors.New("down")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(Config{Timeout: time.Second}, nil)
			for i, e := range tt.errs {
				e := e
				m.Register(CheckFunc(string(rune('a'+i)), func(context.Context) error { return e }))
			}
			rep := m.CheckAll(context.Background())
			if rep.Status != tt.want {
				t.Errorf("Status = %q, want %q", rep.Status, tt.want)
			}
			if rep.Summary.Total != len(tt.errs) {
				t.Errorf("Summary.Total = %d, want %d", rep.Summary.Total, len(tt.errs))
			}
		})
	}
}

func TestCachedBeforeFirstCheck(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	m.Register(CheckFunc("store", func(context.Context) error { return nil }))
	if got := m.Cached().Status; got != StatusUnknown {
		t.Errorf("Cached().Status = %q, want unknown", got)
	}
	m.CheckAll(context.Background())
	if got := m.Cached().Status; got != StatusHealthy {
		t.Errorf("Cached().Status after check = %q, want healthy", got)
	}
}

func TestBreakerCheckerDegrades(t *testing.T) {
	b := circuit.New(circuit.Config{Name: "health_test_geocoder", OpenFor: time.Hour, MaxConsecFailures: 1}, nil)
	c := NewBreakerChecker(b)
	if got := c.Check(context.Background()).Status; got != StatusHealthy {
		t.Fatalf("closed breaker status = %q, want healthy", got)
	}
	_ = b.Do(context.Background(), func(context.Context) error { return errors.New("boom") }, nil)
	res := c.Check(context.Background())
	if res.Status != StatusDegraded || res.Metadata["state"] != "open" {
		t.Errorf("open breaker = %q %v, want degraded/open", res.Status, res.Metadata)
	}
}

func TestReadyHandler(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	m.Register(CheckFunc("db", func(context.Context) error { return errors.New("refused") }))

	rec := httptest.NewRecorder()
	m.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["ready"] != false {
		t.Errorf("ready = %v, want false", body["ready"])
	}

	rec = httptest.NewRecorder()
	m.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live code = %d, want 200", rec.Code)
	}
}
