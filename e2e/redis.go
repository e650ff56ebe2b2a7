package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	redisOnce      sync.Once
	redisContainer *tcredis.RedisContainer
	redisConnStr   string
	redisStartErr  error
	redisWG        sync.WaitGroup
)

// UseRedis signals that the test is using Redis.
// This will either provision or reuse a Redis container for the test.
// Do not expect a clean state; the container is shared across tests, so
// use a stream name of your own.
func UseRedis(t *testing.T) string {
	t.Helper()

	redisOnce.Do(func() {
		ctx := context.Background()
		redisContainer, redisStartErr = tcredis.Run(ctx, "redis:7")
		if redisStartErr != nil {
			return
		}
		redisConnStr, redisStartErr = redisContainer.ConnectionString(ctx)
	})

	if redisStartErr != nil {
		t.Fatalf("failed to start redis container: %v", redisStartErr)
	}
	redisWG.Add(1)
	t.Cleanup(redisWG.Done)

	return redisConnStr
}

// GetRedisClient connects to the Redis instance at connStr for the duration
// of the test.
func GetRedisClient(t *testing.T, connStr string) *redis.Client {
	t.Helper()
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("failed to parse redis connection string: %v", err)
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TerminateRedisForE2E() {
	redisWG.Wait()
	if err := testcontainers.TerminateContainer(redisContainer); err != nil {
		fmt.Printf("failed to terminate redis container: %v", err)
	}
}
