package config

import (
	"context"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedisWithRetry connects and sets the global Redis client + lock
// client. Redis is optional: it only strengthens keyed locking across
// instances, so after a few failed attempts we give up and run without it.
func ConnectRedisWithRetry(cfg *Config) {
	if cfg.RedisAddress == "" {
		log.Printf("REDIS_ADDRESS not set; running without redis locks")
		return
	}

	ctx := context.Background()
	for attempt := 1; attempt <= 5; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			PoolSize: 100,
		})
		if err := client.Ping(ctx).Err(); err == nil {
			rdb = client
			locker = redislock.New(client)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, cfg.RedisAddress)
			return
		} else {
			client.Close()
			sleep := time.Second * time.Duration(1<<min(attempt, 5))
			log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, cfg.RedisAddress, err, sleep)
			time.Sleep(sleep)
		}
	}
	log.Printf("redis unavailable; proceeding with in-process locks only")
}
