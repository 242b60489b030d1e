package application

import (
	"errors"

	"bastion/internal/service/order/domain"
)

// PlaceOrderRequest 是下单入口的应用层 DTO。
type PlaceOrderRequest struct {
	UserID   string `json:"userId"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Validate 检查请求的完整性。
func (r *PlaceOrderRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("userId is required")
	}
	if r.SKU == "" {
		return errors.New("sku is required")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}

// PlaceOrderResponse 是成功下单的响应。
type PlaceOrderResponse struct {
	OrderNumber  string        `json:"orderNumber"`
	SKU          string        `json:"sku"`
	Quantity     int           `json:"quantity"`
	PriceAtOrder float64       `json:"priceAtOrder"`
	Status       domain.Status `json:"status"`
}

// FromOrder 将领域实体映射为响应 DTO。
func FromOrder(o *domain.Order) *PlaceOrderResponse {
	return &PlaceOrderResponse{
		OrderNumber:  o.OrderNumber,
		SKU:          o.SKU,
		Quantity:     o.Quantity,
		PriceAtOrder: o.PriceAtOrder,
		Status:       o.Status,
	}
}
