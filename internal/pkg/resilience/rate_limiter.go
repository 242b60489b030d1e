package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// LimitForPeriod 每个刷新周期内允许的调用数。
	LimitForPeriod int
	// LimitRefreshPeriod 固定刷新周期，周期开始时许可重置为 LimitForPeriod。
	LimitRefreshPeriod time.Duration
	// TimeoutDuration 获取许可的最长等待时间，超过则拒绝。
	TimeoutDuration time.Duration
	// OnLimit is called when a request is rejected.
	OnLimit func(name string)

	now func() time.Time
}

// DefaultRateLimiterConfig returns the defaults this system is tuned for.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:               name,
		LimitForPeriod:     5,
		LimitRefreshPeriod: 10 * time.Second,
		TimeoutDuration:    2 * time.Second,
	}
}

// RateLimiter 固定窗口限流器。
// 每个刷新周期放出 LimitForPeriod 个许可；许可耗尽时，
// Acquire 最多阻塞 TimeoutDuration 等待下一个窗口边界，等不到即拒绝。
// 同一命名操作的所有并发请求共享一个实例。
type RateLimiter struct {
	config RateLimiterConfig

	mu          sync.Mutex
	permits     int
	windowStart time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.LimitForPeriod <= 0 {
		config.LimitForPeriod = 5
	}
	if config.LimitRefreshPeriod <= 0 {
		config.LimitRefreshPeriod = 10 * time.Second
	}
	if config.TimeoutDuration < 0 {
		config.TimeoutDuration = 0
	}
	if config.now == nil {
		config.now = time.Now
	}

	return &RateLimiter{
		config:      config,
		permits:     config.LimitForPeriod,
		windowStart: config.now(),
	}
}

// Acquire 尝试获取一个许可。
// 返回 nil 表示放行；返回 ErrRateLimited 表示在超时内没有等到许可。
// ctx 的取消同样会中断等待。
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	deadline := rl.config.now().Add(rl.config.TimeoutDuration)

	for {
		ok, wait := rl.tryAcquire()
		if ok {
			return nil
		}

		now := rl.config.now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			if rl.config.OnLimit != nil {
				rl.config.OnLimit(rl.config.Name)
			}
			rateLimitRejections.WithLabelValues(rl.config.Name).Inc()
			return ErrRateLimited
		}
		// 等到窗口边界或者把超时耗完，二者取先到的。
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow 非阻塞版本，许可不足时立即返回 false。
func (rl *RateLimiter) Allow() bool {
	ok, _ := rl.tryAcquire()
	return ok
}

// Permits 返回当前窗口剩余的许可数。
func (rl *RateLimiter) Permits() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refresh(rl.config.now())
	return rl.permits
}

// tryAcquire 尝试在当前窗口拿一个许可。
// 失败时返回到下一个窗口边界还需等待的时长。
func (rl *RateLimiter) tryAcquire() (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.config.now()
	rl.refresh(now)

	if rl.permits > 0 {
		rl.permits--
		return true, 0
	}

	return false, rl.windowStart.Add(rl.config.LimitRefreshPeriod).Sub(now)
}

// refresh 跨过所有已结束的窗口并重置许可。调用方必须持锁。
func (rl *RateLimiter) refresh(now time.Time) {
	elapsed := now.Sub(rl.windowStart)
	if elapsed < rl.config.LimitRefreshPeriod {
		return
	}
	periods := elapsed / rl.config.LimitRefreshPeriod
	rl.windowStart = rl.windowStart.Add(periods * rl.config.LimitRefreshPeriod)
	rl.permits = rl.config.LimitForPeriod
}
