package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_AdmitsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Name:               "test",
		LimitForPeriod:     5,
		LimitRefreshPeriod: 10 * time.Second,
		TimeoutDuration:    0,
	})

	for i := 0; i < 5; i++ {
		if err := rl.Acquire(context.Background()); err != nil {
			t.Fatalf("call %d unexpectedly rejected: %v", i+1, err)
		}
	}

	if err := rl.Acquire(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Errorf("6th call in the window must be rejected, got %v", err)
	}
}

func TestRateLimiter_SixthCallWaitsThenRejected(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Name:               "test",
		LimitForPeriod:     5,
		LimitRefreshPeriod: 10 * time.Second,
		TimeoutDuration:    100 * time.Millisecond,
	})

	for i := 0; i < 5; i++ {
		if err := rl.Acquire(context.Background()); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
	}

	start := time.Now()
	err := rl.Acquire(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected rate-limited, got %v", err)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("acquire must wait out its timeout before rejecting, waited %v", elapsed)
	}
}

func TestRateLimiter_PermitsRefreshAtWindowBoundary(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Name:               "test",
		LimitForPeriod:     2,
		LimitRefreshPeriod: 80 * time.Millisecond,
		TimeoutDuration:    200 * time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		if err := rl.Acquire(context.Background()); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
	}

	// 许可耗尽，但超时覆盖了下一个窗口边界：应当等待后放行
	start := time.Now()
	if err := rl.Acquire(context.Background()); err != nil {
		t.Fatalf("expected admission at next window, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected to block until the window boundary, waited only %v", elapsed)
	}
}

func TestRateLimiter_ContextCancelInterruptsWait(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Name:               "test",
		LimitForPeriod:     1,
		LimitRefreshPeriod: 10 * time.Second,
		TimeoutDuration:    5 * time.Second,
	})

	if err := rl.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if err := rl.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRateLimiter_SkipsMissedWindows(t *testing.T) {
	now := time.Now()
	cfg := RateLimiterConfig{
		Name:               "test",
		LimitForPeriod:     5,
		LimitRefreshPeriod: 10 * time.Second,
		TimeoutDuration:    0,
		now:                func() time.Time { return now },
	}
	rl := NewRateLimiter(cfg)

	for i := 0; i < 5; i++ {
		if !rl.Allow() {
			t.Fatalf("call %d unexpectedly rejected", i+1)
		}
	}
	if rl.Allow() {
		t.Fatal("expected exhausted window")
	}

	// 跳过三个完整周期后，许可应当重置为满额
	now = now.Add(35 * time.Second)
	if got := rl.Permits(); got != 5 {
		t.Errorf("expected full permits after idle windows, got %d", got)
	}
}
