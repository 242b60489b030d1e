// cmd/pricing-service/main.go
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"bastion/internal/pkg/bootstrap"
	"bastion/internal/pkg/faultinject"
	"bastion/internal/pkg/logger"
)

const (
	serviceName = "pricing-service"
	servicePort = 8083
)

var tracer = otel.Tracer(serviceName)

// 演示用的价格表。
var prices = map[string]float64{
	"sku-dualsense":  19.99,
	"sku-ps5-disc":   499.99,
	"sku-pulse-3d":   99.99,
	"sku-portal":     199.99,
	"sku-faulty-123": 9.99,
}

func main() {
	injector, err := faultinject.New(os.Getenv("FAULT_EXPR"), parseDelay(os.Getenv("FAULT_DELAY")))
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("invalid fault injection expression")
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("GET /products/{sku}", priceHandler(injector))
		},
	})
}

func priceHandler(injector *faultinject.Injector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, "pricing-service.GetPrice")
		defer span.End()

		sku := r.PathValue("sku")
		price, ok := prices[sku]

		span.SetAttributes(
			attribute.String("item.sku", sku),
			attribute.Float64("item.price", price),
		)

		if injector.Match(sku, 0) {
			span.SetStatus(codes.Error, "injected fault")
			logger.Ctx(ctx).Warn().Str("sku", sku).Msg("injecting fault")
			http.Error(w, "pricing service unavailable for this item", http.StatusInternalServerError)
			return
		}

		if !ok {
			http.Error(w, "unknown sku", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]float64{"price": price})
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
