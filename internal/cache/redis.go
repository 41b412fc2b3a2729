package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the shared redis client; nil when redis is not configured.
// Every consumer fails open when it is nil.
var Client *redis.Client

// InitRedis connects to redis at addr. An empty addr disables caching.
func InitRedis(addr string) {
	if addr == "" {
		log.Println("⚠️ REDIS_ADDR not set, running without cache")
		return
	}

	Client = redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ redis connection warning: %v (continuing without cache)", err)
		Client = nil
	} else {
		log.Println("✅ connected to redis")
	}
}

// GetClient returns the shared client, possibly nil
func GetClient() *redis.Client {
	return Client
}
