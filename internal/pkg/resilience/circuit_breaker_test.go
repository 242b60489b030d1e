package resilience

import (
	"sync"
	"testing"
	"time"
)

func testBreakerConfig(wait time.Duration) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                    "test",
		SlidingWindowSize:       10,
		FailureRateThreshold:    50,
		WaitDurationInOpenState: wait,
		HalfOpenMaxCalls:        1,
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	if cb.State() != StateClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Error("closed breaker must allow calls")
	}
}

func TestCircuitBreaker_OpensAtFailureRateThreshold(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig(20 * time.Second))

	// 5 次成功 + 4 次失败：窗口未满足 50%，仍然放行
	for i := 0; i < 5; i++ {
		cb.OnOutcome(OutcomeSuccess)
	}
	for i := 0; i < 4; i++ {
		cb.OnOutcome(OutcomeInfraFailure)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed at 4/9 failures, got %s", cb.State())
	}

	// 第 10 个结果是失败：窗口满且失败率到达 50%
	cb.OnOutcome(OutcomeInfraFailure)
	if cb.State() != StateOpen {
		t.Fatalf("expected open at 5/10 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("open breaker must reject calls")
	}
}

func TestCircuitBreaker_NotOpenBeforeWindowFull(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig(20 * time.Second))

	// 窗口未满时即使 100% 失败也不熔断
	for i := 0; i < 9; i++ {
		cb.OnOutcome(OutcomeInfraFailure)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed with unfilled window, got %s", cb.State())
	}
}

func TestCircuitBreaker_BusinessFailureDoesNotCount(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig(20 * time.Second))

	for i := 0; i < 20; i++ {
		cb.OnOutcome(OutcomeBusinessFailure)
	}
	if cb.State() != StateClosed {
		t.Errorf("business failures must not trip the breaker, got %s", cb.State())
	}
	if cb.WindowFilled() != 0 {
		t.Errorf("business failures must not enter the window, got %d entries", cb.WindowFilled())
	}
}

func TestCircuitBreaker_TimeoutCountsAsFailure(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig(20 * time.Second))

	for i := 0; i < 5; i++ {
		cb.OnOutcome(OutcomeSuccess)
	}
	for i := 0; i < 5; i++ {
		cb.OnOutcome(OutcomeTimeout)
	}
	if cb.State() != StateOpen {
		t.Errorf("timeouts must count toward the failure rate, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAfterWaitDuration(t *testing.T) {
	now := time.Now()
	cfg := testBreakerConfig(20 * time.Second)
	cfg.now = func() time.Time { return now }
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 10; i++ {
		cb.OnOutcome(OutcomeInfraFailure)
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	// 19s：仍然 OPEN
	now = now.Add(19 * time.Second)
	if cb.Allow() {
		t.Error("breaker must stay open before the wait duration elapses")
	}

	// 20s：进入 HALF_OPEN，只放一个试探调用
	now = now.Add(time.Second)
	if !cb.Allow() {
		t.Fatal("expected one trial call to be admitted in half-open")
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("only one trial call may be admitted in half-open")
	}
}

func TestCircuitBreaker_TrialSuccessClosesAndResetsWindow(t *testing.T) {
	now := time.Now()
	cfg := testBreakerConfig(20 * time.Second)
	cfg.now = func() time.Time { return now }
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 10; i++ {
		cb.OnOutcome(OutcomeInfraFailure)
	}
	now = now.Add(20 * time.Second)
	if !cb.Allow() {
		t.Fatal("trial call not admitted")
	}

	cb.OnOutcome(OutcomeSuccess)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after successful trial, got %s", cb.State())
	}
	if cb.WindowFilled() != 0 {
		t.Errorf("window must be reset on close, got %d entries", cb.WindowFilled())
	}
}

func TestCircuitBreaker_TrialBusinessFailureClosesBreaker(t *testing.T) {
	now := time.Now()
	cfg := testBreakerConfig(20 * time.Second)
	cfg.now = func() time.Time { return now }
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 10; i++ {
		cb.OnOutcome(OutcomeInfraFailure)
	}
	now = now.Add(20 * time.Second)
	if !cb.Allow() {
		t.Fatal("trial call not admitted")
	}

	// 试探请求得到了业务层拒绝：依赖有响应，等同试探通过，
	// 绝不能把唯一的试探名额永久占住
	cb.OnOutcome(OutcomeBusinessFailure)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after business-failure trial, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Error("breaker must admit calls after the trial resolved")
	}

	now = now.Add(24 * time.Hour)
	if !cb.Allow() {
		t.Error("breaker must never wedge after a business-failure trial")
	}
}

func TestCircuitBreaker_TrialFailureReopensAndRestartsTimer(t *testing.T) {
	now := time.Now()
	cfg := testBreakerConfig(20 * time.Second)
	cfg.now = func() time.Time { return now }
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 10; i++ {
		cb.OnOutcome(OutcomeInfraFailure)
	}
	now = now.Add(20 * time.Second)
	if !cb.Allow() {
		t.Fatal("trial call not admitted")
	}

	cb.OnOutcome(OutcomeInfraFailure)
	if cb.State() != StateOpen {
		t.Fatalf("expected re-open after failed trial, got %s", cb.State())
	}

	// 计时必须从头再来：再过 19s 仍然 OPEN
	now = now.Add(19 * time.Second)
	if cb.Allow() {
		t.Error("open timer must restart after a failed trial")
	}
	now = now.Add(time.Second)
	if !cb.Allow() {
		t.Error("expected half-open again after a full wait duration")
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cfg := testBreakerConfig(20 * time.Second)
	cfg.OnStateChange = func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 10; i++ {
		cb.OnOutcome(OutcomeInfraFailure)
	}

	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}

func TestCircuitBreaker_ConcurrentOutcomes(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig(20 * time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(fail bool) {
			defer wg.Done()
			cb.Allow()
			if fail {
				cb.OnOutcome(OutcomeInfraFailure)
			} else {
				cb.OnOutcome(OutcomeSuccess)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if n := cb.WindowFilled(); n != 10 {
		t.Errorf("window must be bounded at 10 entries, got %d", n)
	}
}
