package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisConnectAttempts = 3
	redisPingTimeout     = 3 * time.Second
)

// ConnectRedis opens the Redis client backing the dashboard caches and the
// notification pubsub channel. An empty URL yields a nil client; callers then
// run without caching or cross-node fan-out. The first ping is retried briefly
// so the API can start alongside its Redis container.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	var pingErr error
	for attempt := 1; attempt <= redisConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		pingErr = client.Ping(pingCtx).Err()
		cancel()
		if pingErr == nil {
			return client, nil
		}

		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("unable to connect to redis after %d attempts: %w", redisConnectAttempts, pingErr)
}
