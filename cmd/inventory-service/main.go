// cmd/inventory-service/main.go
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"bastion/internal/pkg/bootstrap"
	"bastion/internal/pkg/faultinject"
	"bastion/internal/pkg/logger"
)

const (
	serviceName = "inventory-service"
	servicePort = 8082
)

var tracer = otel.Tracer(serviceName)

// 演示用的库存表。生产里这是一个真正的库存服务。
var (
	stockMu sync.RWMutex
	stock   = map[string]int{
		"sku-dualsense":  10,
		"sku-ps5-disc":   1,
		"sku-pulse-3d":   25,
		"sku-portal":     0,
		"sku-faulty-123": 100,
	}
)

func main() {
	// 故障注入规则来自环境变量，例如:
	//   FAULT_EXPR='sku == "sku-faulty-123" && quantity > 10'
	injector, err := faultinject.New(os.Getenv("FAULT_EXPR"), parseDelay(os.Getenv("FAULT_DELAY")))
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("invalid fault injection expression")
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("GET /inventory/quantity/{sku}", quantityHandler(injector))
		},
	})
}

func quantityHandler(injector *faultinject.Injector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, "inventory-service.GetQuantity")
		defer span.End()

		sku := r.PathValue("sku")
		stockMu.RLock()
		quantity, ok := stock[sku]
		stockMu.RUnlock()

		span.SetAttributes(
			attribute.String("item.sku", sku),
			attribute.Int("item.quantity", quantity),
		)

		if injector.Match(sku, quantity) {
			err := errors.New("injected inventory fault")
			span.RecordError(err)
			span.SetStatus(codes.Error, "injected fault")
			logger.Ctx(ctx).Warn().Str("sku", sku).Msg("injecting fault")
			http.Error(w, "inventory service unavailable for this item", http.StatusInternalServerError)
			return
		}

		if !ok {
			http.Error(w, "unknown sku", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"quantity": quantity})
	}
}

func parseDelay(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
