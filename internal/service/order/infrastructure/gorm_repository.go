package infrastructure

import (
	"context"
	"errors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bastion/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// OpenDB 建立 MySQL 连接并迁移订单表。
func OpenDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&OrderModel{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Save 在单个事务内写入订单。
// WithContext 让事务跟随请求的截止时间：超时触发时事务回滚，
// 不会留下半成品订单行。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := ToModel(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.ID = model.ID
	return nil
}

// FindByOrderNumber 根据订单号查找订单。
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return ToDomain(&model), nil
}
