package fn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestResult(t *testing.T) {
	ok := Ok(42)
	if !ok.IsOk() || ok.IsErr() {
		t.Fatal("Ok should be ok")
	}
	if v, err := ok.Unwrap(); v != 42 || err != nil {
		t.Fatalf("Unwrap = %d, %v", v, err)
	}

	bad := Err[int](errBoom)
	if bad.IsOk() || !bad.IsErr() {
		t.Fatal("Err should be err")
	}
	if !errors.Is(bad.Error(), errBoom) {
		t.Fatalf("Error = %v", bad.Error())
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair("x", nil); !r.IsOk() {
		t.Fatal("nil error should be ok")
	}
	if r := FromPair("x", errBoom); r.IsOk() {
		t.Fatal("error should be err")
	}
}

func TestThen(t *testing.T) {
	double := Stage[int, int](func(_ context.Context, n int) Result[int] { return Ok(n * 2) })
	show := Stage[int, string](func(_ context.Context, n int) Result[string] {
		return Ok(strings.Repeat("x", n))
	})
	r := Then(double, show)(context.Background(), 2)
	if v, _ := r.Unwrap(); v != "xxxx" {
		t.Fatalf("got %q", v)
	}

	called := false
	fail := Stage[int, int](func(context.Context, int) Result[int] { return Err[int](errBoom) })
	never := Stage[int, string](func(context.Context, int) Result[string] {
		called = true
		return Ok("")
	})
	if r := Then(fail, never)(context.Background(), 1); r.IsOk() || called {
		t.Fatal("Then should short-circuit")
	}
}

func TestPipeline(t *testing.T) {
	var seen []int
	add := func(n int) Stage[int, int] {
		return func(_ context.Context, v int) Result[int] {
			seen = append(seen, v)
			return Ok(v + n)
		}
	}
	r := Pipeline(add(1), add(10), add(100))(context.Background(), 0)
	if v, _ := r.Unwrap(); v != 111 {
		t.Fatalf("got %d", v)
	}
	if len(seen) != 3 || seen[1] != 1 || seen[2] != 11 {
		t.Fatalf("stages saw %v", seen)
	}

	seen = nil
	fail := Stage[int, int](func(context.Context, int) Result[int] { return Err[int](errBoom) })
	if r := Pipeline(add(1), fail, add(1))(context.Background(), 0); r.IsOk() {
		t.Fatal("expected error")
	}
	if len(seen) != 1 {
		t.Fatalf("pipeline should stop at failure, saw %v", seen)
	}
}

func TestTapAndTraced(t *testing.T) {
	var tapped int
	stage := TracedStage("test", Then(
		TapStage(func(_ context.Context, v int) { tapped = v }),
		Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v + 1) }),
	))
	if v, _ := stage(context.Background(), 5).Unwrap(); v != 6 || tapped != 5 {
		t.Fatalf("got %d, tapped %d", v, tapped)
	}

	failing := TracedStage("fail", Stage[int, int](func(context.Context, int) Result[int] {
		return Err[int](errBoom)
	}))
	if r := failing(context.Background(), 1); !errors.Is(r.Error(), errBoom) {
		t.Fatalf("expected errBoom, got %v", r.Error())
	}
}

func TestRetry(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	var calls int
	r := Retry(context.Background(), opts, func(context.Context) Result[string] {
		calls++
		if calls < 3 {
			return Err[string](errBoom)
		}
		return Ok("done")
	})
	if v, err := r.Unwrap(); err != nil || v != "done" || calls != 3 {
		t.Fatalf("got %q, %v after %d calls", v, err, calls)
	}

	calls = 0
	r = Retry(context.Background(), opts, func(context.Context) Result[string] {
		calls++
		return Err[string](errBoom)
	})
	if r.IsOk() || calls != 3 {
		t.Fatalf("expected 3 failed attempts, got %d", calls)
	}
}

func TestRetryNotRetryable(t *testing.T) {
	opts := RetryOpts{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, errBoom) },
	}
	var calls int
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		calls++
		return Err[int](errBoom)
	})
	if r.IsOk() || calls != 1 {
		t.Fatalf("non-retryable error should stop after 1 call, got %d", calls)
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := RetryOpts{MaxAttempts: 10, InitialWait: time.Hour}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		cancel()
		return Err[int](errBoom)
	})
	if !errors.Is(r.Error(), context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", r.Error())
	}
}

func TestRetryStage(t *testing.T) {
	var calls int
	stage := RetryStage(RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond},
		Stage[int, int](func(_ context.Context, v int) Result[int] {
			calls++
			if calls == 1 {
				return Err[int](errBoom)
			}
			return Ok(v * 3)
		}))
	if v, err := stage(context.Background(), 3).Unwrap(); err != nil || v != 9 {
		t.Fatalf("got %d, %v", v, err)
	}
}

func TestSlices(t *testing.T) {
	got := Map([]int{1, 2, 3}, func(n int) int { return n * n })
	if len(got) != 3 || got[2] != 9 {
		t.Fatalf("Map = %v", got)
	}
	even := Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	if len(even) != 2 || even[0] != 2 {
		t.Fatalf("Filter = %v", even)
	}
	if n := len(Take([]int{1, 2, 3}, 2)); n != 2 {
		t.Fatalf("Take 2 = %d", n)
	}
	if n := len(Take([]int{1, 2, 3}, 10)); n != 3 {
		t.Fatalf("Take 10 = %d", n)
	}
	if n := len(Take([]int{1, 2, 3}, 0)); n != 0 {
		t.Fatalf("Take 0 = %d", n)
	}
	u := UniqueBy([]string{"a", "A", "b"}, strings.ToLower)
	if len(u) != 2 || u[0] != "a" || u[1] != "b" {
		t.Fatalf("UniqueBy = %v", u)
	}
}

func TestParMap(t *testing.T) {
	var running, peak atomic.Int32
	items := []int{1, 2, 3, 4, 5, 6}
	out := ParMap(context.Background(), items, 2, func(_ context.Context, n int) Result[int] {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return Ok(n * 10)
	})
	for i, r := range out {
		if v, _ := r.Unwrap(); v != items[i]*10 {
			t.Fatalf("out[%d] = %d", i, v)
		}
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds 2 workers", peak.Load())
	}
}

func TestParMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := ParMap(ctx, []int{1, 2}, 1, func(_ context.Context, n int) Result[int] { return Ok(n) })
	for _, r := range out {
		if r.IsOk() {
			// a worker slot may win the select race; it must still produce the value
			if v, _ := r.Unwrap(); v == 0 {
				t.Fatal("ok result without value")
			}
			continue
		}
		if !errors.Is(r.Error(), context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", r.Error())
		}
	}
	if len(ParMap(context.Background(), []int{}, 4, func(context.Context, int) Result[int] { return Ok(0) })) != 0 {
		t.Fatal("empty input should give empty output")
	}
}
