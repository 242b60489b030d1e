package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"bastion/internal/pkg/mq"
	"bastion/internal/service/order/domain"
)

// OrderPlacedTopic 是订单事件的 Kafka 主题。
const OrderPlacedTopic = "order-placed"

// OrderPlacedEvent 是发往通知渠道的订单事件。
type OrderPlacedEvent struct {
	OrderNumber  string  `json:"orderNumber"`
	UserID       string  `json:"userId"`
	SKU          string  `json:"sku"`
	Quantity     int     `json:"quantity"`
	PriceAtOrder float64 `json:"priceAtOrder"`
	Status       string  `json:"status"`
}

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

// SendOrderPlaced 在订单落库之后广播事件。
// 只在成功提交之后调用，失败由调用方记录，不回滚订单。
func (a *NotificationKafkaAdapter) SendOrderPlaced(ctx context.Context, order *domain.Order) error {
	event := OrderPlacedEvent{
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		SKU:          order.SKU,
		Quantity:     order.Quantity,
		PriceAtOrder: order.PriceAtOrder,
		Status:       string(order.Status),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order placed event")
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(order.UserID), eventBytes)
}

// Close 关闭底层的Kafka writer。
func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
