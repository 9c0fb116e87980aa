package redis

import (
	"context"
	"fmt"
	"time"

	"jetstream-go/common/config"

	"github.com/go-redis/redis/v8"
)

// Connect creates a client and verifies it answers PING within 5s.
// The client is closed again when the ping fails.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
