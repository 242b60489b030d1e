package port

import "context"

// PricingService 是定价协作方的出站端口。
type PricingService interface {
	// GetPrice 返回 sku 当前的单价。
	GetPrice(ctx context.Context, sku string) (float64, error)
}
