package infrastructure

import (
	"time"

	"bastion/internal/service/order/domain"
)

// OrderModel 是订单的数据库模型，与领域实体分离。
type OrderModel struct {
	ID           uint    `gorm:"primaryKey"`
	OrderNumber  string  `gorm:"size:64;uniqueIndex;not null"`
	UserID       string  `gorm:"size:64;index;not null"`
	SKU          string  `gorm:"size:64;not null"`
	Quantity     int     `gorm:"not null"`
	PriceAtOrder float64 `gorm:"type:decimal(10,2);not null"`
	Status       string  `gorm:"size:16;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 指定表名。
func (OrderModel) TableName() string { return "orders" }

// ToModel 将领域实体映射为数据库模型。
func ToModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		UserID:       o.UserID,
		SKU:          o.SKU,
		Quantity:     o.Quantity,
		PriceAtOrder: o.PriceAtOrder,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// ToDomain 将数据库模型映射回领域实体。
func ToDomain(m *OrderModel) *domain.Order {
	return &domain.Order{
		ID:           m.ID,
		OrderNumber:  m.OrderNumber,
		UserID:       m.UserID,
		SKU:          m.SKU,
		Quantity:     m.Quantity,
		PriceAtOrder: m.PriceAtOrder,
		Status:       domain.Status(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
