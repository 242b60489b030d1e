package adapter

import (
	"context"
	"fmt"

	"bastion/internal/pkg/httpclient"
)

const pricingServiceName = "pricing-service"

// PricingHTTPAdapter 实现了 port.PricingService 接口。
type PricingHTTPAdapter struct {
	client *httpclient.Client
}

// NewPricingHTTPAdapter 创建一个新的定价服务适配器。
func NewPricingHTTPAdapter(client *httpclient.Client) *PricingHTTPAdapter {
	return &PricingHTTPAdapter{client: client}
}

// GetPrice 查询 sku 的当前单价。
func (a *PricingHTTPAdapter) GetPrice(ctx context.Context, sku string) (float64, error) {
	var resp struct {
		Price float64 `json:"price"`
	}
	path := fmt.Sprintf("/products/%s", sku)
	if err := a.client.GetJSON(ctx, pricingServiceName, path, &resp); err != nil {
		return 0, err
	}
	return resp.Price, nil
}
