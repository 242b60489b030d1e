package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeLimiter_PassesThroughFastCalls(t *testing.T) {
	tl := NewTimeLimiter(TimeLimiterConfig{Name: "test", Timeout: time.Second})

	err := tl.Run(context.Background(), func(ctx context.Context) error {
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestTimeLimiter_CancelsOverrunningCalls(t *testing.T) {
	tl := NewTimeLimiter(TimeLimiterConfig{Name: "test", Timeout: 50 * time.Millisecond})

	cancelled := make(chan struct{})
	start := time.Now()
	err := tl.Run(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			close(cancelled)
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("time limiter must return promptly at the deadline, took %v", elapsed)
	}

	select {
	case <-cancelled:
		// 被包裹的操作观测到了取消
	case <-time.After(time.Second):
		t.Error("wrapped operation did not observe cancellation")
	}
}

func TestTimeLimiter_TimeoutClassifiesAsTimeout(t *testing.T) {
	tl := NewTimeLimiter(TimeLimiterConfig{Name: "test", Timeout: 10 * time.Millisecond})

	err := tl.Run(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if Classify(err) != OutcomeTimeout {
		t.Errorf("expected timeout classification, got %s", Classify(err))
	}
}

func TestTimeLimiter_PropagatesBusinessFailures(t *testing.T) {
	tl := NewTimeLimiter(TimeLimiterConfig{Name: "test", Timeout: time.Second})

	err := tl.Run(context.Background(), func(ctx context.Context) error {
		return NewBusinessError("insufficient stock")
	})

	if !IsBusinessError(err) {
		t.Errorf("expected business error, got %v", err)
	}
}

func TestTimeLimiter_HonorsOuterDeadline(t *testing.T) {
	tl := NewTimeLimiter(TimeLimiterConfig{Name: "test", Timeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tl.Run(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected timeout from the outer deadline, got %v", err)
	}
}
