package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"bastion/internal/pkg/logger"
	"bastion/internal/service/order/application"
	"bastion/internal/service/order/domain"
)

const serviceName = "order-service"

var ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bastion_orders_total",
	Help: "Order placement results by outcome code.",
}, []string{"code"})

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.placeOrderHandler)
	mux.HandleFunc("GET /orders/{orderNumber}", h.getOrderHandler)
}

func (h *OrderHandler) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "order-service.PlaceOrder")
	defer span.End()

	var req application.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRejection(w, &application.Rejection{Code: application.ReasonInvalidRequest, Message: "invalid request body"})
		return
	}

	resp, err := h.service.PlaceOrder(ctx, &req)
	if err != nil {
		var rej *application.Rejection
		if errors.As(err, &rej) {
			writeRejection(w, rej)
			return
		}
		// 不应该走到这里：编排层承诺所有失败都是结构化的 Rejection
		logger.Ctx(ctx).Error().Err(err).Msg("unstructured error from orchestrator")
		writeRejection(w, &application.Rejection{Code: application.ReasonInternal, Message: "order placement failed"})
		return
	}

	ordersTotal.WithLabelValues("PLACED").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *OrderHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "order-service.GetOrder")
	defer span.End()

	resp, err := h.service.GetOrder(ctx, r.PathValue("orderNumber"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("order lookup failed")
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeRejection 把结构化拒绝映射为 HTTP 状态码和 JSON 响应体。
func writeRejection(w http.ResponseWriter, rej *application.Rejection) {
	ordersTotal.WithLabelValues(rej.Code).Inc()

	status := http.StatusInternalServerError
	switch rej.Code {
	case application.ReasonInvalidRequest:
		status = http.StatusBadRequest
	case application.ReasonOutOfStock:
		status = http.StatusConflict
	case application.ReasonRateLimited:
		status = http.StatusTooManyRequests
	case application.ReasonCircuitOpen, application.ReasonRetriesExhausted:
		status = http.StatusServiceUnavailable
	case application.ReasonTimeout:
		status = http.StatusGatewayTimeout
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    rej.Code,
		"message": rej.Message,
	})
}
