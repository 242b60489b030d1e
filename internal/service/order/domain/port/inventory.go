package port

import "context"

// InventoryService 是库存协作方的出站端口。
type InventoryService interface {
	// GetQuantity 返回 sku 当前的可用库存数量。
	GetQuantity(ctx context.Context, sku string) (int, error)
}
