package services

import (
	"context"
	"fmt"
	"time"

	"socialfeed/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(ctx context.Context, conf config.RedisConfig) (*redis.Client, error) {
	port := conf.Port
	if port == 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", conf.Host, port),
		Password: conf.Password,
		DB:       conf.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
