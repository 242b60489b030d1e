package resilience

import (
	"context"
	"fmt"
	"time"
)

// ExhaustedError 表示重试次数耗尽，保留最后一次失败用于终态分类。
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is 让 errors.Is(err, ErrRetriesExhausted) 成立。
func (e *ExhaustedError) Is(target error) bool { return target == ErrRetriesExhausted }

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Name identifies this retry policy for metrics/logging.
	Name string
	// MaxAttempts 单次逻辑调用的最大尝试次数（含首次）。
	MaxAttempts int
	// WaitDuration 两次尝试之间的固定等待时长。
	WaitDuration time.Duration
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the defaults this system is tuned for.
func DefaultRetryConfig(name string) RetryConfig {
	return RetryConfig{
		Name:         name,
		MaxAttempts:  3,
		WaitDuration: 2 * time.Second,
	}
}

// RetryPolicy 有界重试。
// 只有 InfraFailure / Timeout 会触发重试；业务失败第一时间原样返回，
// 不消耗尝试次数。每次外层调用的计数器相互独立，不跨请求共享。
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a new retry policy.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.WaitDuration < 0 {
		config.WaitDuration = 0
	}
	return &RetryPolicy{config: config}
}

// Execute 执行 op，失败时按策略重试。
// 耗尽所有尝试后返回最后一次的错误，并标记为 ErrRetriesExhausted。
func (rp *RetryPolicy) Execute(ctx context.Context, op Operation) error {
	var lastErr error

	for attempt := 1; attempt <= rp.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		if !retryable(Classify(err)) {
			// 业务失败直接透传，不算重试。
			return err
		}

		lastErr = err

		if attempt == rp.config.MaxAttempts {
			break
		}

		if rp.config.OnRetry != nil {
			rp.config.OnRetry(attempt, err)
		}
		retryAttempts.WithLabelValues(rp.config.Name).Inc()

		timer := time.NewTimer(rp.config.WaitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &ExhaustedError{Attempts: rp.config.MaxAttempts, Last: lastErr}
}
