package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"pickup-address-matcher/pkg/metrics"
)

// Change describes a configuration update event.
// Only a subset of fields may have changed; see Fields for the list of keys.
type Change struct {
	Old    *Config
	New    *Config
	Fields []string
	Err    error
}

// Has reports whether field is among the changed keys.
func (c Change) Has(field string) bool {
	for _, f := range c.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Subscriber channel buffer size; small to apply back-pressure if receivers are slow.
const subBuf = 4

// Watcher periodically reloads configuration from the environment. If
// CONFIG_FILE points to a .env file, the file is re-applied with
// godotenv.Overload whenever its mtime moves forward.
type Watcher struct {
	mu        sync.RWMutex
	cur       *Config
	closed    bool
	intv      time.Duration
	subs      []chan Change
	cancel    context.CancelFunc
	filePath  string
	lastMTime time.Time

	mReloads  *metrics.Counter
	mFailures *metrics.Counter
}

func NewWatcher(interval time.Duration) *Watcher {
	return newWatcher(interval, strings.TrimSpace(os.Getenv("CONFIG_FILE")))
}

func newWatcher(interval time.Duration, filePath string) *Watcher {
	w := &Watcher{
		intv:      interval,
		filePath:  filePath,
		mReloads:  metrics.Default.Counter("config_reload_total", "Total number of applied config reloads"),
		mFailures: metrics.Default.Counter("config_reload_failures_total", "Total number of rejected config reloads"),
	}
	if filePath != "" {
		if fi, err := os.Stat(filePath); err == nil {
			w.lastMTime = fi.ModTime()
		}
	}
	w.cur = Load()
	return w
}

// Current returns the last applied configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Subscribe returns a channel to receive Change notifications.
// Caller should drain the channel until it is closed.
func (w *Watcher) Subscribe() <-chan Change {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan Change, subBuf)
	w.subs = append(w.subs, ch)
	return ch
}

// Close stops the watcher and closes subscriber channels.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	for _, s := range w.subs {
		close(s)
	}
	w.subs = nil
}

// Start begins polling in a goroutine. It is safe to call once.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.cancel != nil || w.closed {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	t := time.NewTicker(w.intv)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.checkOnce()
		}
	}
}

func (w *Watcher) checkOnce() {
	if w.filePath != "" {
		if fi, err := os.Stat(w.filePath); err == nil && fi.ModTime().After(w.lastMTime) {
			if err := godotenv.Overload(w.filePath); err != nil {
				w.mFailures.Inc(1)
				w.notify(Change{Old: w.Current(), Err: fmt.Errorf("reload %s: %w", w.filePath, err)})
				return
			}
			w.lastMTime = fi.ModTime()
		}
	}

	newCfg := Load()
	old := w.Current()
	if err := newCfg.Validate(); err != nil {
		w.mFailures.Inc(1)
		w.notify(Change{Old: old, New: newCfg, Err: fmt.Errorf("invalid config: %w", err)})
		return
	}

	fields := diffKeys(old, newCfg)
	if len(fields) == 0 {
		return
	}

	w.mReloads.Inc(1)
	w.mu.Lock()
	w.cur = newCfg
	w.mu.Unlock()
	w.notify(Change{Old: old, New: newCfg, Fields: fields})
}

func (w *Watcher) notify(chg Change) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, s := range w.subs {
		select {
		case s <- chg:
		default:
			// drop if slow; keep system moving
		}
	}
}

// diffKeys lists the hot-reloadable keys that differ. Everything else needs a
// restart.
func diffKeys(a, b *Config) []string {
	if a == nil || b == nil {
		return []string{"all"}
	}
	var f []string
	appendIf := func(cond bool, name string) {
		if cond {
			f = append(f, name)
		}
	}
	appendIf(a.SimilarityThreshold != b.SimilarityThreshold, "SimilarityThreshold")
	appendIf(a.MaxGroupSize != b.MaxGroupSize, "MaxGroupSize")
	appendIf(a.GeocodeRPS != b.GeocodeRPS, "GeocodeRPS")
	appendIf(a.BackfillWorkers != b.BackfillWorkers, "BackfillWorkers")
	appendIf(a.LogLevel != b.LogLevel, "LogLevel")
	return f
}
