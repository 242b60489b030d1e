// internal/service/order/application/service.go
package application

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bastion/internal/pkg/config"
	"bastion/internal/pkg/logger"
	"bastion/internal/pkg/resilience"
	"bastion/internal/service/order/domain"
	"bastion/internal/service/order/domain/port"
)

// ReasonMsgInsufficientStock 是库存不足业务失败的原因文本。
const ReasonMsgInsufficientStock = "insufficient stock"

const orderSequenceName = "order-number"

// OrderApplicationService 编排下单流程：
// 守卫链（限流 -> 熔断 -> 重试 -> 超时）包裹业务工作流，
// 守卫拒绝或最终失败统一走 Fallback。
//
// 熔断器和限流器是进程级共享状态，在这里创建一次，所有并发请求复用；
// 重试计数器则是每次调用独立的。
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	inventory port.InventoryService
	pricing   port.PricingService
	notifier  port.NotificationProducer
	sequence  port.SequenceAllocator
	tracer    trace.Tracer

	rateLimiter *resilience.RateLimiter
	breaker     *resilience.CircuitBreaker
	retry       *resilience.RetryPolicy
	timeLimiter *resilience.TimeLimiter
}

// NewOrderApplicationService 创建编排服务，守卫参数来自配置。
func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	inventory port.InventoryService,
	pricing port.PricingService,
	notifier port.NotificationProducer,
	sequence port.SequenceAllocator,
	tracer trace.Tracer,
	res config.Resilience,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo,
		inventory: inventory,
		pricing:   pricing,
		notifier:  notifier,
		sequence:  sequence,
		tracer:    tracer,
		rateLimiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:               "place-order",
			LimitForPeriod:     res.LimitForPeriod,
			LimitRefreshPeriod: res.LimitRefreshPeriod.D(),
			TimeoutDuration:    res.RateLimiterTimeout.D(),
		}),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:                    "place-order",
			SlidingWindowSize:       res.SlidingWindowSize,
			FailureRateThreshold:    res.FailureRateThreshold,
			WaitDurationInOpenState: res.WaitDurationInOpenState.D(),
			HalfOpenMaxCalls:        res.HalfOpenMaxCalls,
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Logger().Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		}),
		retry: resilience.NewRetryPolicy(resilience.RetryConfig{
			Name:         "place-order",
			MaxAttempts:  res.MaxAttempts,
			WaitDuration: res.RetryWaitDuration.D(),
		}),
		timeLimiter: resilience.NewTimeLimiter(resilience.TimeLimiterConfig{
			Name:    "place-order",
			Timeout: res.TimeLimiterTimeout.D(),
		}),
	}
}

// PlaceOrder 处理一次下单请求。
// 返回成功响应，或者一个携带原因码的 *Rejection。
func (s *OrderApplicationService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.PlaceOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("order.sku", req.SKU),
		attribute.Int("order.quantity", req.Quantity),
	)

	if err := req.Validate(); err != nil {
		return nil, &Rejection{Code: ReasonInvalidRequest, Message: err.Error()}
	}

	// 1. 限流：拿不到许可直接降级，不触达任何下游
	if err := s.rateLimiter.Acquire(ctx); err != nil {
		span.AddEvent("rejected by rate limiter")
		logger.Ctx(ctx).Warn().Str("user_id", req.UserID).Msg("order rejected by rate limiter")
		return nil, Fallback(resilience.ErrRateLimited)
	}

	// 2. 熔断：OPEN 状态快速失败
	if !s.breaker.Allow() {
		span.AddEvent("rejected by circuit breaker")
		logger.Ctx(ctx).Warn().Str("user_id", req.UserID).Msg("order rejected, circuit open")
		return nil, Fallback(resilience.ErrCircuitOpen)
	}

	// 3. 重试包裹超时包裹工作流
	var order *domain.Order
	err := s.retry.Execute(ctx, func(ctx context.Context) error {
		return s.timeLimiter.Run(ctx, func(ctx context.Context) error {
			o, werr := s.runWorkflow(ctx, req)
			if werr != nil {
				return werr
			}
			order = o
			return nil
		})
	})

	// 4. 回馈熔断器：只上报整个逻辑调用的终态，重试的中间尝试不计入窗口，
	//    业务失败由 OnOutcome 自己排除
	s.breaker.OnOutcome(resilience.Classify(err))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order placement failed")
		logger.Ctx(ctx).Error().Err(err).Str("user_id", req.UserID).Str("sku", req.SKU).Msg("order placement failed")
		return nil, Fallback(err)
	}

	// 5. 成功路径：通知失败只记录，订单已经落库
	if s.notifier != nil {
		if nerr := s.notifier.SendOrderPlaced(ctx, order); nerr != nil {
			logger.Ctx(ctx).Error().Err(nerr).Str("order_number", order.OrderNumber).Msg("failed to publish order placed event")
		}
	}

	span.AddEvent("order placed")
	logger.Ctx(ctx).Info().
		Str("order_number", order.OrderNumber).
		Str("user_id", order.UserID).
		Float64("price", order.PriceAtOrder).
		Msg("order placed")
	return FromOrder(order), nil
}

// GetOrder 按订单号查询订单。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderNumber string) (*PlaceOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()

	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return FromOrder(order), nil
}

// BreakerState 暴露熔断器状态用于观测。
func (s *OrderApplicationService) BreakerState() resilience.State {
	return s.breaker.State()
}

// BreakerWindow 暴露熔断器窗口中已记录的结果数，用于观测。
func (s *OrderApplicationService) BreakerWindow() int {
	return s.breaker.WindowFilled()
}

// runWorkflow 是被守卫链包裹的业务工作流：
// 查库存 -> 查价格 -> 生成订单号 -> 快照价格 -> 单事务落库。
// 库存不足是业务失败，协作方故障是基础设施失败。
func (s *OrderApplicationService) runWorkflow(ctx context.Context, req *PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.PlaceOrder")
	defer span.End()

	quantity, err := s.inventory.GetQuantity(ctx, req.SKU)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inventory lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("inventory.quantity", quantity))

	if quantity < req.Quantity {
		span.AddEvent("insufficient stock")
		return nil, resilience.NewBusinessError(ReasonMsgInsufficientStock)
	}

	price, err := s.pricing.GetPrice(ctx, req.SKU)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "price lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.Float64("order.price", price))

	order, err := domain.NewOrder(s.nextOrderNumber(ctx), req.UserID, req.SKU, req.Quantity, price)
	if err != nil {
		return nil, resilience.NewBusinessError(err.Error())
	}
	if err := order.MarkAsPlaced(); err != nil {
		return nil, err
	}

	// 唯一的持久化写入点；ctx 超时会让事务回滚而不是提交
	if err := s.orderRepo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order persistence failed")
		return nil, err
	}
	span.AddEvent("order persisted")

	return order, nil
}

// nextOrderNumber 生成 ORD-YYYYMMDD-NNNNNN 格式的订单号。
// 序列分配器（redis）不可用时退回到随机后缀，缓存降级不能阻断下单。
func (s *OrderApplicationService) nextOrderNumber(ctx context.Context) string {
	date := time.Now().Format("20060102")
	if s.sequence != nil {
		if seq, err := s.sequence.Next(ctx, orderSequenceName); err == nil {
			return fmt.Sprintf("ORD-%s-%06d", date, seq)
		}
		logger.Ctx(ctx).Warn().Msg("sequence allocator unavailable, falling back to random order number")
	}
	return fmt.Sprintf("ORD-%s-R%s-%04d", date, uuid.New().String()[:8], rand.Intn(10000))
}
