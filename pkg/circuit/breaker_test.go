package circuit

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errRemote = errors.New("remote failed")

func fail(context.Context) error    { return errRemote }
func succeed(context.Context) error { return nil }

func newTestBreaker(t *testing.T, cfg Config) (*Breaker, *time.Time) {
	t.Helper()
	b := New(cfg, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(t, Config{Name: t.Name(), OpenFor: time.Minute, MaxConsecFailures: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, fail, nil); !errors.Is(err, errRemote) {
			t.Fatalf("call %d: err = %v, want remote error", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("State() = %v, want open", b.State())
	}

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil }, nil)
	if !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
	if called {
		t.Error("operation ran while breaker open")
	}
}

func TestBreakerFallbackReceivesCause(t *testing.T) {
	b, _ := newTestBreaker(t, Config{Name: t.Name(), OpenFor: time.Minute, MaxConsecFailures: 1})
	ctx := context.Background()

	var causes []error
	fallback := func(_ context.Context, cause error) error {
		causes = append(causes, cause)
		return nil
	}

	if err := b.Do(ctx, fail, fallback); err != nil {
		t.Fatalf("fallback result not returned: %v", err)
	}
	if err := b.Do(ctx, fail, fallback); err != nil {
		t.Fatalf("fallback result not returned: %v", err)
	}
	if len(causes) != 2 || !errors.Is(causes[0], errRemote) || !errors.Is(causes[1], ErrOpen) {
		t.Errorf("causes = %v, want [remote failed, circuit open]", causes)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b, now := newTestBreaker(t, Config{Name: t.Name(), OpenFor: time.Minute, MaxConsecFailures: 1})
	ctx := context.Background()

	_ = b.Do(ctx, fail, nil)
	if b.State() != Open {
		t.Fatalf("State() = %v, want open", b.State())
	}

	// failed probe re-opens
	*now = now.Add(2 * time.Minute)
	if err := b.Do(ctx, fail, nil); !errors.Is(err, errRemote) {
		t.Fatalf("probe err = %v, want remote error", err)
	}
	if b.State() != Open {
		t.Fatalf("State() after failed probe = %v, want open", b.State())
	}

	// successful probe closes
	*now = now.Add(2 * time.Minute)
	if err := b.Do(ctx, succeed, nil); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("State() after successful probe = %v, want closed", b.State())
	}
}

func TestBreakerFailureRateNeedsMinSamples(t *testing.T) {
	b, _ := newTestBreaker(t, Config{Name: t.Name(), OpenFor: time.Minute, WindowSize: 10, MinSamples: 4, FailureRate: 0.5})
	ctx := context.Background()

	_ = b.Do(ctx, fail, nil)
	_ = b.Do(ctx, succeed, nil)
	_ = b.Do(ctx, fail, nil)
	if b.State() != Closed {
		t.Fatalf("opened before MinSamples: %v", b.State())
	}
	_ = b.Do(ctx, succeed, nil)
	if b.State() != Open {
		t.Fatalf("State() = %v, want open at 50%% failures", b.State())
	}
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b, _ := newTestBreaker(t, Config{Name: t.Name(), OpenFor: time.Minute, MaxConsecFailures: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() }, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if b.State() != Closed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}

func TestOperationTimeout(t *testing.T) {
	b, _ := newTestBreaker(t, Config{Name: t.Name(), OperationTimeout: 10 * time.Millisecond, OpenFor: time.Minute})
	err := b.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{Closed: "closed", Open: "open", HalfOpen: "half_open", State(9): "unknown"} {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(st), got, want)
		}
	}
}
