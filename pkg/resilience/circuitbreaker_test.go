package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func fail(context.Context) error { return errUpstream }
func ok(context.Context) error   { return nil }

// breakerAt returns a breaker whose clock is controlled by the returned setter.
func breakerAt(opts BreakerOpts) (*Breaker, func(time.Time)) {
	b := NewBreaker(opts)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, func(t time.Time) { now = t }
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := breakerAt(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: got %v, want upstream error", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Call(ctx, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker should reject, got %v", err)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b, _ := breakerAt(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, fail)
	b.Call(ctx, ok)
	b.Call(ctx, fail)

	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after interleaved success", b.State())
	}
}

func TestBreakerHalfOpenProbeSucceeds(t *testing.T) {
	b, setNow := breakerAt(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	setNow(time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC))
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after timeout", b.State())
	}
	if err := b.Call(ctx, ok); err != nil {
		t.Fatalf("probe should pass through, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after probe success", b.State())
	}
}

func TestBreakerHalfOpenProbeFails(t *testing.T) {
	b, setNow := breakerAt(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, fail)
	setNow(time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC))

	if err := b.Call(ctx, fail); !errors.Is(err, errUpstream) {
		t.Fatalf("probe error = %v, want upstream error", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open after probe failure", b.State())
	}
}

func TestBreakerHalfOpenLimitsProbes(t *testing.T) {
	b, setNow := breakerAt(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	b.Call(ctx, fail)
	setNow(time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC))

	started := make(chan struct{})
	release := make(chan struct{})
	go b.Call(ctx, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	if err := b.Call(ctx, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second probe should be rejected, got %v", err)
	}
	close(release)
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts.FailThreshold != DefaultBreakerOpts.FailThreshold {
		t.Errorf("FailThreshold = %d", b.opts.FailThreshold)
	}
	if b.opts.Timeout != DefaultBreakerOpts.Timeout {
		t.Errorf("Timeout = %v", b.opts.Timeout)
	}
	if b.opts.HalfOpenMax != DefaultBreakerOpts.HalfOpenMax {
		t.Errorf("HalfOpenMax = %d", b.opts.HalfOpenMax)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
