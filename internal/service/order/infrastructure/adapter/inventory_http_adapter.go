package adapter

import (
	"context"
	"fmt"

	"bastion/internal/pkg/httpclient"
)

const inventoryServiceName = "inventory-service"

// InventoryHTTPAdapter 实现了 port.InventoryService 接口。
type InventoryHTTPAdapter struct {
	client *httpclient.Client
}

// NewInventoryHTTPAdapter 创建一个新的库存服务适配器。
func NewInventoryHTTPAdapter(client *httpclient.Client) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client}
}

// GetQuantity 查询 sku 的当前可用库存。
func (a *InventoryHTTPAdapter) GetQuantity(ctx context.Context, sku string) (int, error) {
	var resp struct {
		Quantity int `json:"quantity"`
	}
	path := fmt.Sprintf("/inventory/quantity/%s", sku)
	if err := a.client.GetJSON(ctx, inventoryServiceName, path, &resp); err != nil {
		return 0, err
	}
	return resp.Quantity, nil
}
