package main

import (
	"context"
	"fmt"
	"log"

	"github.com/bitfantasy/nimo-pharmacy/internal/cli"
	"github.com/bitfantasy/nimo-pharmacy/internal/config"
	"github.com/bitfantasy/nimo-pharmacy/internal/database"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/cache"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	cli.Execute(openEnv)
}

func openEnv() (*cli.Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	// 与服务端共用缓存，避免写入后读到旧数据
	var orderCache cache.OrderCache = cache.NopOrderCache{}
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis unavailable, order cache not invalidated", zap.Error(err))
			client.Close()
		} else {
			orderCache = cache.NewRedisOrderCache(client, cfg.Purchasing.CacheTTL, logger)
		}
	}

	return &cli.Env{DB: db, Cache: orderCache, Logger: logger}, nil
}
