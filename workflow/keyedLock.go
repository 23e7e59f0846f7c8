package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// KeyedLocker serializes read-modify-write sequences per record key:
// closing:<tenant>:<storeKey>:<date> and budget:<tenant>:<store>:<week>.
//
// The in-process mutex is authoritative within one instance. The redis lock
// is a best-effort extension across instances: if redis is missing or the
// lock cannot be obtained we log a warning and proceed, matching the
// external store's own lack of transactional guarantees.
type KeyedLocker struct {
	mu     sync.Mutex
	locks  map[string]*keyedMutex
	redis  *redislock.Client
	logger *logrus.Logger
}

// keyedMutex is refcounted so the map entry can be dropped once the last
// holder or waiter releases; every store+date ever touched would otherwise
// pin an entry forever.
type keyedMutex struct {
	sync.Mutex
	refs int
}

func NewKeyedLocker(redis *redislock.Client, logger *logrus.Logger) *KeyedLocker {
	return &KeyedLocker{
		locks:  map[string]*keyedMutex{},
		redis:  redis,
		logger: logger,
	}
}

// Acquire blocks until the key is held and returns the release func.
func (l *KeyedLocker) Acquire(ctx context.Context, key string) func() {
	l.mu.Lock()
	m := l.locks[key]
	if m == nil {
		m = &keyedMutex{}
		l.locks[key] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()

	var rl *redislock.Lock
	if l.redis != nil {
		var err error
		rl, err = l.redis.Obtain(ctx, "lock:"+key, 30*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
		})
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"key": key,
			}).Warn("could not obtain redis lock; proceeding with in-process lock only: " + err.Error())
			rl = nil
		}
	}

	return func() {
		if rl != nil {
			if err := rl.Release(context.Background()); err != nil {
				l.logger.WithFields(logrus.Fields{
					"key": key,
				}).Warn("failed to release redis lock: " + err.Error())
			}
		}
		m.Unlock()

		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
