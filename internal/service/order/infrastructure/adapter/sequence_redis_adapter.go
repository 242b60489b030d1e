package adapter

import (
	"context"
	"fmt"

	"bastion/internal/pkg/redis"
)

// SequenceRedisAdapter 用 Redis INCR 实现 port.SequenceAllocator。
// 多实例部署下序列依然单调且不重复。
type SequenceRedisAdapter struct {
	client *redis.Client
}

// NewSequenceRedisAdapter 创建一个新的序列分配器。
func NewSequenceRedisAdapter(client *redis.Client) *SequenceRedisAdapter {
	return &SequenceRedisAdapter{client: client}
}

// Next 返回命名序列的下一个值。
func (a *SequenceRedisAdapter) Next(ctx context.Context, name string) (int64, error) {
	return a.client.Incr(ctx, fmt.Sprintf("bastion:seq:{%s}", name))
}
