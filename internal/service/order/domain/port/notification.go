package port

import (
	"context"

	"bastion/internal/service/order/domain"
)

// NotificationProducer 在订单落库之后对外广播事件。
// 通知失败只记录，不影响已经成功的下单。
type NotificationProducer interface {
	SendOrderPlaced(ctx context.Context, order *domain.Order) error
}
