// internal/service/order/domain/order.go
package domain

import (
	"errors"
	"time"
)

// Order 是订单聚合的根实体。
// 只有在库存和价格都确认之后才会被构造，且只在成功路径上持久化一次；
// 任何中间状态都不会被外部观察到。
type Order struct {
	ID          uint
	OrderNumber string
	UserID      string
	SKU         string
	Quantity    int
	// PriceAtOrder 是下单时刻的单价快照，写入后不再变更。
	PriceAtOrder float64
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// 工厂函数: NewOrder 用于创建一个新的订单实例
func NewOrder(orderNumber, userID, sku string, quantity int, priceAtOrder float64) (*Order, error) {
	if orderNumber == "" || userID == "" || sku == "" {
		return nil, errors.New("cannot create order with empty required fields")
	}
	if quantity <= 0 {
		return nil, errors.New("order quantity must be positive")
	}
	if priceAtOrder < 0 {
		return nil, errors.New("order price must not be negative")
	}

	now := time.Now()
	return &Order{
		OrderNumber:  orderNumber,
		UserID:       userID,
		SKU:          sku,
		Quantity:     quantity,
		PriceAtOrder: priceAtOrder,
		Status:       StatusCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// MarkAsPlaced 将订单状态流转为已下单。
func (o *Order) MarkAsPlaced() error {
	if o.Status != StatusCreated {
		return errors.New("order can only be placed from created state")
	}
	o.Status = StatusPlaced
	o.UpdatedAt = time.Now()
	return nil
}

// MarkAsFailed 将订单标记为失败
func (o *Order) MarkAsFailed() {
	o.Status = StatusFailed
	o.UpdatedAt = time.Now()
}
