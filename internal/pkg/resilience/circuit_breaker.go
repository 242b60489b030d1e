package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows limited trial requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string
	// SlidingWindowSize 是用于计算失败率的最近调用结果数量。
	SlidingWindowSize int
	// FailureRateThreshold 触发熔断的失败率阈值，百分比 (0, 100]。
	FailureRateThreshold float64
	// WaitDurationInOpenState 是 OPEN 状态持续多久后进入 HALF_OPEN。
	WaitDurationInOpenState time.Duration
	// HalfOpenMaxCalls 是 HALF_OPEN 状态下允许的试探调用数。
	HalfOpenMaxCalls int
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State)

	// now is overridable for tests.
	now func() time.Time
}

// DefaultCircuitBreakerConfig returns the defaults this system is tuned for.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                    name,
		SlidingWindowSize:       10,
		FailureRateThreshold:    50,
		WaitDurationInOpenState: 20 * time.Second,
		HalfOpenMaxCalls:        1,
	}
}

// CircuitBreaker 基于计数滑动窗口的熔断器。
//
// CLOSED: 放行所有调用，每个终态结果写入窗口；窗口写满且失败率达到阈值时转为 OPEN。
// OPEN: 立即拒绝所有调用；距上次转换超过 WaitDurationInOpenState 后转为 HALF_OPEN。
// HALF_OPEN: 放行有限的试探调用；试探成功 -> CLOSED 并清空窗口，
// 试探失败 -> OPEN 并重置计时。
//
// 同一命名操作的所有并发请求共享一个实例，进程启动时创建，进程退出时销毁。
// 状态更新在一把窄锁内完成，不会让并发读卡在状态更新之外的事情上。
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	window        []bool // true = failure；环形缓冲
	windowPos     int
	windowFilled  int
	lastTransit   time.Time
	halfOpenCalls int
	halfOpenInUse int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.SlidingWindowSize <= 0 {
		config.SlidingWindowSize = 10
	}
	if config.FailureRateThreshold <= 0 || config.FailureRateThreshold > 100 {
		config.FailureRateThreshold = 50
	}
	if config.WaitDurationInOpenState <= 0 {
		config.WaitDurationInOpenState = 20 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.now == nil {
		config.now = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		window: make([]bool, config.SlidingWindowSize),
	}
}

// Allow 判断当前是否放行一次调用。
// HALF_OPEN 下放行即占用一个试探名额。
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return true
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.halfOpenInUse < cb.config.HalfOpenMaxCalls {
			cb.halfOpenInUse++
			return true
		}
		return false
	default:
		return false
	}
}

// OnOutcome 回馈一次完整逻辑调用的终态结果。
// 业务失败不计入窗口，但在 HALF_OPEN 下它说明依赖已恢复响应，
// 试探按通过处理，不能把名额吞掉。重试中间态不应该走到这里——调用方只上报最终结果。
func (cb *CircuitBreaker) OnOutcome(kind OutcomeKind) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := retryable(kind)
	business := kind == OutcomeBusinessFailure

	switch cb.currentState() {
	case StateClosed:
		if business {
			return
		}
		cb.record(failed)
		if cb.windowFilled >= cb.config.SlidingWindowSize && cb.failureRate() >= cb.config.FailureRateThreshold {
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		if failed {
			cb.toState(StateOpen)
			return
		}
		cb.halfOpenCalls++
		if cb.halfOpenCalls >= cb.config.HalfOpenMaxCalls {
			cb.toState(StateClosed)
		}
	case StateOpen:
		if business {
			return
		}
		// 迟到的结果（调用在转换前已放行），只记录不转换。
		cb.record(failed)
	}
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// FailureCount 返回窗口内的失败数，用于观测。
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures()
}

// WindowFilled 返回窗口中已记录的结果数。
func (cb *CircuitBreaker) WindowFilled() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.windowFilled
}

// Reset resets the circuit breaker to closed state with an empty window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.clearWindow()
}

// record 将一个结果写入环形窗口。调用方必须持锁。
func (cb *CircuitBreaker) record(failed bool) {
	cb.window[cb.windowPos] = failed
	cb.windowPos = (cb.windowPos + 1) % cb.config.SlidingWindowSize
	if cb.windowFilled < cb.config.SlidingWindowSize {
		cb.windowFilled++
	}
}

func (cb *CircuitBreaker) failures() int {
	n := 0
	for i := 0; i < cb.windowFilled; i++ {
		if cb.window[i] {
			n++
		}
	}
	return n
}

func (cb *CircuitBreaker) failureRate() float64 {
	if cb.windowFilled == 0 {
		return 0
	}
	return float64(cb.failures()) / float64(cb.windowFilled) * 100
}

func (cb *CircuitBreaker) clearWindow() {
	for i := range cb.window {
		cb.window[i] = false
	}
	cb.windowPos = 0
	cb.windowFilled = 0
}

// currentState 返回当前状态，并处理 OPEN 超时后的自动转换。调用方必须持锁。
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && cb.config.now().Sub(cb.lastTransit) >= cb.config.WaitDurationInOpenState {
		cb.toState(StateHalfOpen)
	}
	return cb.state
}

// toState transitions to a new state. 调用方必须持锁。
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.lastTransit = cb.config.now()

	switch to {
	case StateClosed:
		cb.clearWindow()
		cb.halfOpenCalls = 0
		cb.halfOpenInUse = 0
	case StateHalfOpen:
		cb.halfOpenCalls = 0
		cb.halfOpenInUse = 0
	case StateOpen:
		cb.halfOpenCalls = 0
		cb.halfOpenInUse = 0
	}

	breakerStateGauge.WithLabelValues(cb.config.Name).Set(float64(to))

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
