// cmd/notification-service/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bastion/internal/pkg/bootstrap"
	"bastion/internal/pkg/config"
	"bastion/internal/pkg/logger"
	"bastion/internal/pkg/mq"
	"bastion/internal/service/order/infrastructure/adapter"
)

const (
	serviceName   = "notification-service"
	servicePort   = 8084
	consumerGroup = "notification-consumer-group"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 演示服务，接受任意来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub 把消费到的订单事件广播给所有已连接的 websocket 客户端。
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{conns: map[*websocket.Conn]struct{}{}}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.Close()
}

func (h *hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.conns, c)
			c.Close()
		}
	}
}

func main() {
	h := newHub()
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumers, consumersCtx := errgroup.WithContext(consumerCtx)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := config.Get()
			tracer := otel.Tracer(serviceName)

			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				conn, err := upgrader.Upgrade(w, r, nil)
				if err != nil {
					logger.Logger().Error().Err(err).Msg("websocket upgrade failed")
					return
				}
				h.add(conn)
				// 读循环只为发现断连
				go func() {
					defer h.remove(conn)
					for {
						if _, _, err := conn.ReadMessage(); err != nil {
							return
						}
					}
				}()
			})

			reader := mq.NewKafkaReader(cfg.Infra.KafkaBrokers, adapter.OrderPlacedTopic, consumerGroup)
			consumers.Go(func() error {
				defer reader.Close()
				for {
					msg, err := reader.ReadMessage(consumersCtx)
					if err != nil {
						if consumersCtx.Err() != nil {
							return nil
						}
						logger.Logger().Error().Err(err).Msg("could not read order event, retrying")
						time.Sleep(5 * time.Second)
						continue
					}

					carrier := mq.KafkaHeaderCarrier(msg.Headers)
					parentCtx := otel.GetTextMapPropagator().Extract(consumersCtx, &carrier)
					ctx, span := tracer.Start(parentCtx, "notification-service.OrderPlaced",
						trace.WithSpanKind(trace.SpanKindConsumer))

					var event adapter.OrderPlacedEvent
					if err := json.Unmarshal(msg.Value, &event); err != nil {
						logger.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal order event")
						span.End()
						continue
					}

					h.broadcast(msg.Value)
					logger.Ctx(ctx).Info().
						Str("order_number", event.OrderNumber).
						Str("user_id", event.UserID).
						Msg("order notification delivered")
					span.End()
				}
			})
		},
		OnShutdown: func(ctx context.Context) {
			// 先取消再等待，保证消费 goroutine 关掉 reader 后进程才退出
			stopConsumer()
			if err := consumers.Wait(); err != nil {
				logger.Logger().Error().Err(err).Msg("order event consumer exited with error")
			}
		},
	})
}
