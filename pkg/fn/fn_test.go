package fn

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestResultOkErr(t *testing.T) {
	ok := Ok(7)
	if !ok.IsOk() || ok.IsErr() {
		t.Fatal("Ok should be ok")
	}
	if ok.Must() != 7 {
		t.Fatal("Must should return the value")
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err should not be ok")
	}
	if e.UnwrapOr(3) != 3 {
		t.Fatal("UnwrapOr should return fallback on error")
	}
	v, _ := e.Unwrap()
	if v != 0 {
		t.Fatal("Err value should be zero")
	}
}

func TestFromPair(t *testing.T) {
	if FromPair(1, nil).IsErr() {
		t.Fatal("FromPair with nil error should be ok")
	}
	if FromPair(0, errors.New("x")).IsOk() {
		t.Fatal("FromPair with error should be err")
	}
}

func TestMapResultPropagatesError(t *testing.T) {
	r := MapResult(Err[int](errors.New("boom")), strconv.Itoa)
	if r.IsOk() {
		t.Fatal("MapResult on Err should stay Err")
	}
	_, err := r.Unwrap()
	if err.Error() != "boom" {
		t.Fatal("error should propagate through MapResult")
	}
}

func TestCollect(t *testing.T) {
	r := Collect([]Result[int]{Ok(1), Ok(2)})
	vals := r.Must()
	if len(vals) != 2 || vals[1] != 2 {
		t.Fatal("Collect should gather values in order")
	}

	r = Collect([]Result[int]{Ok(1), Err[int](errors.New("second"))})
	if r.IsOk() {
		t.Fatal("Collect should fail if any result failed")
	}
}

func TestThenShortCircuits(t *testing.T) {
	called := false
	fail := Stage[int, int](func(_ context.Context, _ int) Result[int] { return Err[int](errors.New("fail")) })
	next := Stage[int, string](func(_ context.Context, v int) Result[string] {
		called = true
		return Ok(strconv.Itoa(v))
	})
	r := Then(fail, next)(context.Background(), 1)
	if r.IsOk() {
		t.Fatal("composed stage should fail")
	}
	if called {
		t.Fatal("second stage should not run after error")
	}
}

func TestPipelinePassThrough(t *testing.T) {
	double := Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v * 2) })
	p := Pipeline(double, double)
	if p(context.Background(), 3).Must() != 12 {
		t.Fatal("pipeline should apply stages in order")
	}
	if Pipeline[int]()(context.Background(), 42).Must() != 42 {
		t.Fatal("empty pipeline should pass through")
	}
}

func TestTapStage(t *testing.T) {
	var seen int
	tap := TapStage(func(_ context.Context, v int) { seen = v })
	if tap(context.Background(), 9).Must() != 9 {
		t.Fatal("tap should pass value through")
	}
	if seen != 9 {
		t.Fatal("tap side effect should run")
	}
}

func TestTracedStageError(t *testing.T) {
	fail := Stage[int, int](func(_ context.Context, _ int) Result[int] { return Errf[int]("nope") })
	r := TracedStage("test", fail)(context.Background(), 1)
	if r.IsOk() {
		t.Fatal("traced stage should propagate error")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(_ context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Errf[int]("attempt %d", attempts)
		}
		return Ok(attempts)
	})
	if r.Must() != 3 {
		t.Fatalf("expected success on attempt 3, got %v", r)
	}
}

func TestRetryExhausted(t *testing.T) {
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}, func(_ context.Context) Result[int] {
		return Errf[int]("always")
	})
	if r.IsOk() {
		t.Fatal("retry should return last error when exhausted")
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: 10 * time.Millisecond}, func(_ context.Context) Result[int] {
		return Errf[int]("fail")
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestSliceHelpers(t *testing.T) {
	doubled := Map([]int{1, 2}, func(v int) int { return v * 2 })
	if doubled[0] != 2 || doubled[1] != 4 {
		t.Fatal("Map")
	}

	odds := Filter([]int{1, 2, 3}, func(v int) bool { return v%2 == 1 })
	if len(odds) != 2 {
		t.Fatal("Filter")
	}

	uniq := UniqueBy([]string{"a", "b", "a"}, func(s string) string { return s })
	if len(uniq) != 2 || uniq[0] != "a" || uniq[1] != "b" {
		t.Fatal("UniqueBy should keep first occurrence")
	}
}
