// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"errors"
)

// ErrOrderNotFound 订单不存在。
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Save 在一个事务内保存订单。事务提交前订单对读取方不可见，
	// ctx 被取消时事务必须回滚。
	Save(ctx context.Context, order *Order) error

	// FindByOrderNumber 根据订单号查找订单。
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
}
