package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"pickup-address-matcher/pkg/logging"
	"pickup-address-matcher/pkg/metrics"
)

// State represents the circuit breaker state.
// Closed: normal operation; HalfOpen: probing; Open: fail fast.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config tunes a circuit breaker instance.
type Config struct {
	Name string

	OperationTimeout  time.Duration // per-call timeout
	OpenFor           time.Duration // how long to stay open before probing
	MaxConsecFailures int           // consecutive failures to open
	WindowSize        int           // sliding window of recent calls
	MinSamples        int           // calls needed before rates are evaluated
	FailureRate       float64       // 0..1 fraction in window to open
	SlowCallThreshold time.Duration // duration over which a call is considered slow
	SlowCallRate      float64       // 0..1 fraction in window to open
}

// DefaultConfig suits a remote HTTP API called a few times per second.
func DefaultConfig(name string) Config {
	return Config{
		Name:              name,
		OperationTimeout:  5 * time.Second,
		OpenFor:           30 * time.Second,
		MaxConsecFailures: 5,
		WindowSize:        20,
		MinSamples:        10,
		FailureRate:       0.5,
		SlowCallThreshold: 3 * time.Second,
		SlowCallRate:      0.8,
	}
}

// ErrOpen indicates the breaker is open and calls are short-circuited.
var ErrOpen = errors.New("circuit open")

type sample struct {
	success bool
	slow    bool
}

type Breaker struct {
	cfg        Config
	mu         sync.Mutex
	st         State
	lastChange time.Time
	nextProbe  time.Time
	consecFail int
	probing    bool

	win  []sample
	idx  int
	used int

	log *logging.ComponentLogger
	now func() time.Time

	mState   *metrics.Gauge
	mOpen    *metrics.Counter
	mSuccess *metrics.Counter
	mFailure *metrics.Counter
	mTimeout *metrics.Counter
	mLatency *metrics.Histogram
}

func New(cfg Config, log *logging.Logger) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	if log == nil {
		log = logging.Nop()
	}
	prefix := "cb_" + cfg.Name
	b := &Breaker{
		cfg:        cfg,
		st:         Closed,
		lastChange: time.Now(),
		win:        make([]sample, cfg.WindowSize),
		log:        log.WithComponent("circuit"),
		now:        time.Now,
		mState:     metrics.Default.Gauge(prefix+"_state", "Circuit breaker state (0=closed,1=open,2=half-open)"),
		mOpen:      metrics.Default.Counter(prefix+"_opens_total", "Circuit opened events"),
		mSuccess:   metrics.Default.Counter(prefix+"_success_total", "Successful calls through circuit"),
		mFailure:   metrics.Default.Counter(prefix+"_failure_total", "Failed calls through circuit"),
		mTimeout:   metrics.Default.Counter(prefix+"_timeout_total", "Timed out calls"),
		mLatency:   metrics.Default.Histogram(prefix+"_latency_seconds", "Latency of calls", []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5}),
	}
	b.mState.SetFloat64(float64(Closed))
	return b
}

// Name returns the configured breaker name.
func (b *Breaker) Name() string { return b.cfg.Name }

// State returns the current state. An open breaker whose cool-down elapsed
// still reports Open until the next call probes it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) setStateLocked(st State) {
	if b.st == st {
		return
	}
	from := b.st
	b.st = st
	b.lastChange = b.now()
	b.mState.SetFloat64(float64(st))
	switch st {
	case Open:
		b.mOpen.Inc(1)
		b.nextProbe = b.now().Add(b.cfg.OpenFor)
	case Closed:
		b.consecFail = 0
		b.used, b.idx = 0, 0
	}
	b.log.Info("breaker state change",
		logging.String("name", b.cfg.Name),
		logging.String("from", from.String()),
		logging.String("to", st.String()))
}

// record adds a sample into the ring and opens the breaker when a threshold
// is crossed.
func (b *Breaker) record(success, slow bool) {
	b.win[b.idx] = sample{success: success, slow: slow}
	if b.used < len(b.win) {
		b.used++
	}
	b.idx = (b.idx + 1) % len(b.win)

	if b.st != Closed {
		return
	}
	if b.cfg.MaxConsecFailures > 0 && b.consecFail >= b.cfg.MaxConsecFailures {
		b.setStateLocked(Open)
		return
	}
	if b.used < b.cfg.MinSamples {
		return
	}

	fail, slowN := 0, 0
	for i := 0; i < b.used; i++ {
		if !b.win[i].success {
			fail++
		}
		if b.win[i].slow {
			slowN++
		}
	}
	if b.cfg.FailureRate > 0 && float64(fail)/float64(b.used) >= b.cfg.FailureRate {
		b.setStateLocked(Open)
		return
	}
	if b.cfg.SlowCallRate > 0 && float64(slowN)/float64(b.used) >= b.cfg.SlowCallRate {
		b.setStateLocked(Open)
	}
}

// Do runs op under the breaker. If open, runs fallback if provided, otherwise
// returns ErrOpen. Outputs of op are captured through closure variables.
// Only one probe runs while half-open; concurrent callers fail fast.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error, fallback func(ctx context.Context, cause error) error) error {
	b.mu.Lock()
	if b.st == Open && !b.now().Before(b.nextProbe) {
		b.setStateLocked(HalfOpen)
	}
	if b.st == Open || (b.st == HalfOpen && b.probing) {
		b.mu.Unlock()
		if fallback != nil {
			return fallback(ctx, ErrOpen)
		}
		return ErrOpen
	}
	probe := b.st == HalfOpen
	if probe {
		b.probing = true
	}
	b.mu.Unlock()

	if b.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.OperationTimeout)
		defer cancel()
	}

	start := time.Now()
	err := op(ctx)
	dur := time.Since(start)
	b.mLatency.Observe(dur.Seconds())
	slow := b.cfg.SlowCallThreshold > 0 && dur > b.cfg.SlowCallThreshold

	b.mu.Lock()
	if probe {
		b.probing = false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		b.mTimeout.Inc(1)
	}

	// A caller cancelling its own request says nothing about the remote side.
	if err != nil && errors.Is(err, context.Canceled) {
		b.mu.Unlock()
		return err
	}

	if err != nil {
		b.consecFail++
		b.mFailure.Inc(1)
		b.record(false, slow)
		if b.st == HalfOpen {
			b.setStateLocked(Open)
		}
		b.mu.Unlock()
		if fallback != nil {
			return fallback(ctx, err)
		}
		return err
	}

	b.consecFail = 0
	b.mSuccess.Inc(1)
	b.record(true, slow)
	if b.st == HalfOpen {
		b.setStateLocked(Closed)
	}
	b.mu.Unlock()
	return nil
}
