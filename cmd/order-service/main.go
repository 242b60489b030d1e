// cmd/order-service/main.go
package main

import (
	"context"

	"go.opentelemetry.io/otel"

	"bastion/internal/pkg/bootstrap"
	"bastion/internal/pkg/config"
	"bastion/internal/pkg/httpclient"
	"bastion/internal/pkg/logger"
	"bastion/internal/pkg/mq"
	"bastion/internal/pkg/redis"
	"bastion/internal/service/order/application"
	"bastion/internal/service/order/domain/port"
	"bastion/internal/service/order/infrastructure"
	"bastion/internal/service/order/infrastructure/adapter"
	"bastion/internal/service/order/interfaces"
)

const (
	serviceName = "order-service"
	servicePort = 8081
)

// main 是应用的"组装根" (Composition Root)：
// 创建并组装所有依赖项，然后把控制权交给 bootstrap。
func main() {
	var notifier *adapter.NotificationKafkaAdapter

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := config.Get()
			tracer := otel.Tracer(serviceName)

			db, err := infrastructure.OpenDB(cfg.Infra.MysqlDSN)
			if err != nil {
				logger.Logger().Fatal().Err(err).Msg("failed to open database")
			}
			orderRepo := infrastructure.NewGormOrderRepository(db)

			// 服务发现：优先 Nacos，静态表兜底
			var resolver httpclient.Resolver = httpclient.StaticResolver(cfg.Infra.StaticServices)
			if appCtx.Nacos != nil {
				resolver = &httpclient.FallbackResolver{
					Primary: appCtx.Nacos,
					Static:  httpclient.StaticResolver(cfg.Infra.StaticServices),
				}
			}
			httpClient := httpclient.NewClient(tracer, resolver)

			inventory := adapter.NewInventoryHTTPAdapter(httpClient)
			pricing := adapter.NewPricingHTTPAdapter(httpClient)

			// Redis 序列分配器是可降级依赖：连不上时走随机订单号
			var sequence port.SequenceAllocator
			if redisClient, err := redis.NewClient(cfg.Infra.RedisAddr); err != nil {
				logger.Logger().Warn().Err(err).Msg("redis unavailable, order numbers fall back to random suffixes")
			} else {
				sequence = adapter.NewSequenceRedisAdapter(redisClient)
			}

			notifier = adapter.NewNotificationKafkaAdapter(
				mq.NewKafkaWriter(cfg.Infra.KafkaBrokers, adapter.OrderPlacedTopic),
			)

			service := application.NewOrderApplicationService(
				orderRepo, inventory, pricing, notifier, sequence, tracer, cfg.Resilience,
			)

			interfaces.NewOrderHandler(service).RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if notifier != nil {
				if err := notifier.Close(); err != nil {
					logger.Logger().Error().Err(err).Msg("error closing kafka writer")
				}
			}
		},
	})
}
