package resilience

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// TimeLimiterConfig configures a time limiter.
type TimeLimiterConfig struct {
	// Name identifies this time limiter for metrics/logging.
	Name string
	// Timeout 是被包裹操作的硬截止时长。
	Timeout time.Duration
}

// DefaultTimeLimiterConfig returns the defaults this system is tuned for.
func DefaultTimeLimiterConfig(name string) TimeLimiterConfig {
	return TimeLimiterConfig{
		Name:    name,
		Timeout: 3 * time.Second,
	}
}

// TimeLimiter 给被包裹的操作施加硬截止时间。
// 截止时间通过 context 协作式传播：下游调用和持久化事务都必须监听同一个
// ctx，超时后事务只会回滚而不会提交——事务边界是这一保证的最终权威。
type TimeLimiter struct {
	config TimeLimiterConfig
}

// NewTimeLimiter creates a new time limiter.
func NewTimeLimiter(config TimeLimiterConfig) *TimeLimiter {
	if config.Timeout <= 0 {
		config.Timeout = 3 * time.Second
	}
	return &TimeLimiter{config: config}
}

// Run 在截止时间内执行 op。
// 超时后立即向调用方返回 ErrTimeout，同时取消传给 op 的 context；
// op 仍在后台收尾（observe cancellation），但它的结果不再被采信。
func (tl *TimeLimiter) Run(ctx context.Context, op Operation) error {
	ctx, cancel := context.WithTimeout(ctx, tl.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
			timeoutCount.WithLabelValues(tl.config.Name).Inc()
			return errors.Wrap(ErrTimeout, tl.config.Name)
		}
		return err
	case <-ctx.Done():
		timeoutCount.WithLabelValues(tl.config.Name).Inc()
		return errors.Wrap(ErrTimeout, tl.config.Name)
	}
}
