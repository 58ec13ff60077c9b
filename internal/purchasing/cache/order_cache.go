package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OrderCache 订单详情读缓存；失败只记日志，不影响主流程
type OrderCache interface {
	Get(ctx context.Context, pharmacyID, id string) (*entity.PurchaseOrder, bool)
	Set(ctx context.Context, po *entity.PurchaseOrder)
	Invalidate(ctx context.Context, pharmacyID, id string)
}

// Key 订单缓存键，按门店隔离
func Key(pharmacyID, id string) string {
	return fmt.Sprintf("pharmacy:po:%s:%s", pharmacyID, id)
}

// RedisOrderCache 基于 Redis 的订单缓存
type RedisOrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisOrderCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisOrderCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisOrderCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisOrderCache) Get(ctx context.Context, pharmacyID, id string) (*entity.PurchaseOrder, bool) {
	data, err := c.client.Get(ctx, Key(pharmacyID, id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("order cache get failed", zap.String("order_id", id), zap.Error(err))
		}
		return nil, false
	}

	var po entity.PurchaseOrder
	if err := json.Unmarshal(data, &po); err != nil {
		c.logger.Warn("order cache decode failed", zap.String("order_id", id), zap.Error(err))
		return nil, false
	}
	if po.PharmacyID != pharmacyID {
		return nil, false
	}
	return &po, true
}

func (c *RedisOrderCache) Set(ctx context.Context, po *entity.PurchaseOrder) {
	data, err := json.Marshal(po)
	if err != nil {
		c.logger.Warn("order cache encode failed", zap.String("order_id", po.ID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, Key(po.PharmacyID, po.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("order cache set failed", zap.String("order_id", po.ID), zap.Error(err))
	}
}

func (c *RedisOrderCache) Invalidate(ctx context.Context, pharmacyID, id string) {
	if err := c.client.Del(ctx, Key(pharmacyID, id)).Err(); err != nil {
		c.logger.Warn("order cache invalidate failed", zap.String("order_id", id), zap.Error(err))
	}
}

// NopOrderCache 未配置 Redis 时使用
type NopOrderCache struct{}

func (NopOrderCache) Get(context.Context, string, string) (*entity.PurchaseOrder, bool) {
	return nil, false
}

func (NopOrderCache) Set(context.Context, *entity.PurchaseOrder) {}

func (NopOrderCache) Invalidate(context.Context, string, string) {}
