package port

import "context"

// SequenceAllocator 分配订单号使用的单调序列。
type SequenceAllocator interface {
	Next(ctx context.Context, name string) (int64, error)
}
