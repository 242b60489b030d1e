// Package resilience 提供了显式组合的容错原语：
// 熔断器、重试、限流器、超时控制。它们以中间件的形式包裹业务操作，
// 组合顺序由调用方决定（典型顺序：限流 -> 熔断 -> 重试 -> 超时）。
package resilience

import (
	"context"
	"errors"
	"fmt"
)

// OutcomeKind 标记一次调用的终态分类。
// 重试和熔断器只根据这个标记做策略决定，而不是去匹配具体的错误类型。
type OutcomeKind int

const (
	// OutcomeSuccess 调用成功。
	OutcomeSuccess OutcomeKind = iota
	// OutcomeBusinessFailure 业务层面的拒绝（例如库存不足）。
	// 不重试，不计入熔断器窗口。
	OutcomeBusinessFailure
	// OutcomeInfraFailure 基础设施故障（网络错误、下游5xx）。
	// 可重试，计入熔断器窗口。
	OutcomeInfraFailure
	// OutcomeTimeout 超出截止时间。按基础设施故障计入熔断器，但单独上报。
	OutcomeTimeout
)

// String returns the outcome kind name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeBusinessFailure:
		return "business_failure"
	case OutcomeInfraFailure:
		return "infra_failure"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// 守卫层拒绝与终态错误的哨兵值。
var (
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrTimeout          = errors.New("deadline exceeded")
)

// BusinessError 包装一个业务层拒绝。
// 它实现 error，但通过 Classify 被排除在重试和熔断统计之外。
type BusinessError struct {
	Reason string
	Err    error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("business failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("business failure: %s", e.Reason)
}

func (e *BusinessError) Unwrap() error { return e.Err }

// NewBusinessError 创建一个带原因标记的业务失败。
func NewBusinessError(reason string) *BusinessError {
	return &BusinessError{Reason: reason}
}

// IsBusinessError reports whether err carries a business-level rejection.
func IsBusinessError(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

// Classify 将一个错误映射为终态分类。
// context 的取消/超时视为 Timeout，业务错误保持原样，其余一律按基础设施故障处理。
func Classify(err error) OutcomeKind {
	switch {
	case err == nil:
		return OutcomeSuccess
	case IsBusinessError(err):
		return OutcomeBusinessFailure
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return OutcomeTimeout
	default:
		return OutcomeInfraFailure
	}
}

// retryable reports whether an outcome kind is eligible for retry
// and for circuit breaker accounting.
func retryable(kind OutcomeKind) bool {
	return kind == OutcomeInfraFailure || kind == OutcomeTimeout
}

// Operation 是被守卫链包裹的业务操作。
type Operation func(ctx context.Context) error
