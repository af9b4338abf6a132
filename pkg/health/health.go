package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"pickup-address-matcher/pkg/circuit"
	"pickup-address-matcher/pkg/logging"
)

// Status is the health of one component or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Component is the result of a single check.
type Component struct {
	Name        string                 `json:"name"`
	Status      Status                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Report aggregates every registered check.
type Report struct {
	Status     Status               `json:"status"`
	Timestamp  time.Time            `json:"timestamp"`
	Version    string               `json:"version,omitempty"`
	Uptime     string               `json:"uptime"`
	Components map[string]Component `json:"components"`
	Summary    Summary              `json:"summary"`
}

type Summary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`
}

// Checker reports the health of one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) Component
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkFunc) Name() string { return c.name }

func (c checkFunc) Check(ctx context.Context) Component {
	start := time.Now()
	res := Component{Name: c.name, LastChecked: start, Status: StatusHealthy}
	if err := c.fn(ctx); err != nil {
		res.Status = StatusUnhealthy
		res.Error = err.Error()
	}
	res.Duration = time.Since(start)
	return res
}

// CheckFunc adapts a probe returning an error into a Checker. Any error
// marks the component unhealthy.
func CheckFunc(name string, fn func(ctx context.Context) error) Checker {
	return checkFunc{name: name, fn: fn}
}

type Config struct {
	Timeout time.Duration
	Version string
}

func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second, Version: "1.0.0"}
}

// Manager runs registered checkers and caches their last result.
type Manager struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	results   map[string]Component
	startTime time.Time
	version   string
	timeout   time.Duration
	logger    *logging.ComponentLogger
}

func NewManager(cfg Config, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Manager{
		checkers:  make(map[string]Checker),
		results:   make(map[string]Component),
		startTime: time.Now(),
		version:   cfg.Version,
		timeout:   cfg.Timeout,
		logger:    logger.WithComponent("health"),
	}
}

func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := c.Name()
	m.checkers[name] = c
	m.results[name] = Component{Name: name, Status: StatusUnknown}
	m.logger.Info("registered health checker", logging.String("checker", name))
}

// CheckAll runs every checker concurrently, each under the manager timeout.
func (m *Manager) CheckAll(ctx context.Context) Report {
	start := time.Now()

	m.mu.RLock()
	checkers := make([]Checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	results := make(chan Component, len(checkers))
	var wg sync.WaitGroup
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			results <- c.Check(cctx)
		}(c)
	}
	wg.Wait()
	close(results)

	components := make(map[string]Component, len(checkers))
	m.mu.Lock()
	for r := range results {
		components[r.Name] = r
		m.results[r.Name] = r
	}
	m.mu.Unlock()

	rep := m.report(components)
	m.logger.Debug("health check complete",
		logging.String("status", string(rep.Status)),
		logging.Duration("duration", time.Since(start)),
		logging.Int("components", len(components)))
	return rep
}

// Cached returns the last known results without running any checks.
func (m *Manager) Cached() Report {
	m.mu.RLock()
	components := make(map[string]Component, len(m.results))
	for k, v := range m.results {
		components[k] = v
	}
	m.mu.RUnlock()
	return m.report(components)
}

func (m *Manager) report(components map[string]Component) Report {
	sum := summarize(components)
	return Report{
		Status:     overall(sum),
		Timestamp:  time.Now(),
		Version:    m.version,
		Uptime:     time.Since(m.startTime).Round(time.Second).String(),
		Components: components,
		Summary:    sum,
	}
}

func summarize(components map[string]Component) Summary {
	s := Summary{Total: len(components)}
	for _, c := range components {
		switch c.Status {
		case StatusHealthy:
			s.Healthy++
		case StatusDegraded:
			s.Degraded++
		case StatusUnhealthy:
			s.Unhealthy++
		default:
			s.Unknown++
		}
	}
	return s
}

// overall: any unhealthy component makes the service unhealthy, any degraded
// one makes it degraded. No checkers at all counts as healthy.
func overall(s Summary) Status {
	switch {
	case s.Unhealthy > 0:
		return StatusUnhealthy
	case s.Degraded > 0:
		return StatusDegraded
	case s.Healthy == s.Total:
		return StatusHealthy
	default:
		return StatusUnknown
	}
}

// DatabaseChecker pings the pool and runs a trivial query.
type DatabaseChecker struct {
	db   *sql.DB
	name string
}

func NewDatabaseChecker(db *sql.DB, name string) *DatabaseChecker {
	return &DatabaseChecker{db: db, name: name}
}

func (d *DatabaseChecker) Name() string { return d.name }

func (d *DatabaseChecker) Check(ctx context.Context) Component {
	start := time.Now()
	res := Component{Name: d.name, LastChecked: start, Metadata: map[string]interface{}{}}

	var one int
	if err := d.db.PingContext(ctx); err != nil {
		res.Status = StatusUnhealthy
		res.Message = "ping failed"
		res.Error = err.Error()
	} else if err := d.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		res.Status = StatusUnhealthy
		res.Message = "query failed"
		res.Error = err.Error()
	} else {
		res.Status = StatusHealthy
	}

	stats := d.db.Stats()
	res.Metadata["open_connections"] = stats.OpenConnections
	res.Metadata["in_use"] = stats.InUse
	res.Metadata["idle"] = stats.Idle
	res.Metadata["wait_count"] = stats.WaitCount
	res.Duration = time.Since(start)
	return res
}

// BreakerChecker reports a remote dependency through its circuit breaker.
// An open or probing breaker degrades the service without failing it, since
// matching keeps working without the geocoder.
type BreakerChecker struct {
	b *circuit.Breaker
}

func NewBreakerChecker(b *circuit.Breaker) *BreakerChecker {
	return &BreakerChecker{b: b}
}

func (c *BreakerChecker) Name() string { return c.b.Name() }

func (c *BreakerChecker) Check(context.Context) Component {
	st := c.b.State()
	res := Component{
		Name:        c.b.Name(),
		LastChecked: time.Now(),
		Metadata:    map[string]interface{}{"state": st.String()},
	}
	if st == circuit.Closed {
		res.Status = StatusHealthy
	} else {
		res.Status = StatusDegraded
		res.Message = fmt.Sprintf("circuit %s", st)
	}
	return res
}

// Handler serves the full report. Unhealthy maps to 503.
func (m *Manager) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep := m.CheckAll(r.Context())
		code := http.StatusOK
		if rep.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, rep)
	}
}

// LiveHandler answers as long as the process serves requests.
func (m *Manager) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "alive",
			"timestamp": time.Now(),
			"uptime":    time.Since(m.startTime).Round(time.Second).String(),
		})
	}
}

// ReadyHandler reports ready unless a component is unhealthy.
func (m *Manager) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep := m.CheckAll(r.Context())
		ready := rep.Status != StatusUnhealthy
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"status":     rep.Status,
			"ready":      ready,
			"timestamp":  rep.Timestamp,
			"components": len(rep.Components),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
