// Package redis 封装了 go-redis 客户端的创建与少量通用操作。
package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Client 包装了底层的 go-redis 客户端。
type Client struct {
	rdb *goredis.Client
}

// NewClient 连接到 addr 并确认可达。
func NewClient(addr string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	return &Client{rdb: rdb}, nil
}

// Incr 对 key 做原子自增并返回新值。
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

// Close 关闭底层连接。
func (c *Client) Close() error {
	return c.rdb.Close()
}
