package application

import (
	"errors"
	"fmt"

	"bastion/internal/pkg/resilience"
)

// 降级响应的原因码。调用方和运维据此判断订单为什么没有成交。
const (
	ReasonRateLimited      = "RATE_LIMITED"
	ReasonCircuitOpen      = "CIRCUIT_OPEN"
	ReasonRetriesExhausted = "RETRIES_EXHAUSTED"
	ReasonTimeout          = "TIMEOUT"
	ReasonOutOfStock       = "OUT_OF_STOCK"
	ReasonInvalidRequest   = "INVALID_REQUEST"
	ReasonInternal         = "INTERNAL"
)

// Rejection 是降级路径的显式拒绝结果。
// 它实现 error，永远携带结构化原因码，不会让调用方看到裸异常。
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func (r *Rejection) Unwrap() error { return r.cause }

// Fallback 把守卫层拒绝和最终失败映射为结构化的 Rejection。
// 它是纯函数：幂等、无副作用，绝不返回一个默认的 Order。
func Fallback(err error) *Rejection {
	var be *resilience.BusinessError
	switch {
	case errors.Is(err, resilience.ErrRateLimited):
		return &Rejection{Code: ReasonRateLimited, Message: "too many orders right now, please retry later", cause: err}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return &Rejection{Code: ReasonCircuitOpen, Message: "order placement is temporarily suspended", cause: err}
	case errors.Is(err, resilience.ErrRetriesExhausted):
		// 耗尽重试的超时按 RETRIES_EXHAUSTED 上报，单次超时才是 TIMEOUT
		return &Rejection{Code: ReasonRetriesExhausted, Message: "order could not be placed after several attempts", cause: err}
	case errors.As(err, &be):
		return &Rejection{Code: businessReason(be.Reason), Message: be.Reason, cause: err}
	case resilience.Classify(err) == resilience.OutcomeTimeout:
		return &Rejection{Code: ReasonTimeout, Message: "order placement timed out", cause: err}
	default:
		return &Rejection{Code: ReasonInternal, Message: "order placement failed", cause: err}
	}
}

func businessReason(reason string) string {
	if reason == ReasonMsgInsufficientStock {
		return ReasonOutOfStock
	}
	return ReasonInvalidRequest
}
