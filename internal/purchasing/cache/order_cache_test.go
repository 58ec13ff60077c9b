package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKeyIsScopedByPharmacy(t *testing.T) {
	assert.Equal(t, "pharmacy:po:ph1:po1", Key("ph1", "po1"))
	assert.NotEqual(t, Key("ph1", "po1"), Key("ph2", "po1"))
}

func TestNopOrderCache(t *testing.T) {
	var c OrderCache = NopOrderCache{}
	ctx := context.Background()

	c.Set(ctx, &entity.PurchaseOrder{ID: "po1", PharmacyID: "ph1"})
	po, ok := c.Get(ctx, "ph1", "po1")
	assert.False(t, ok)
	assert.Nil(t, po)
	c.Invalidate(ctx, "ph1", "po1")
}

func TestRedisOrderCacheUnavailableIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedisOrderCache(client, time.Minute, nil)
	ctx := context.Background()

	c.Set(ctx, &entity.PurchaseOrder{ID: "po1", PharmacyID: "ph1"})
	po, ok := c.Get(ctx, "ph1", "po1")
	assert.False(t, ok)
	assert.Nil(t, po)
	c.Invalidate(ctx, "ph1", "po1")
}
