package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/avstrong/hotelbooking/internal/logger"
)

const (
	defaultTTL   = 10 * time.Second
	defaultRetry = 50 * time.Millisecond
	keyPrefix    = "hotelbooking:lock:"
)

var ErrLockNotHeld = errors.New("lock is not held by this token")

// Only the holder's token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Config struct {
	L     *logger.Logger
	TTL   time.Duration
	Retry time.Duration
}

type Locker struct {
	l      *logger.Logger
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func New(conf Config, client *redis.Client) *Locker {
	ttl := conf.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	retry := conf.Retry
	if retry <= 0 {
		retry = defaultRetry
	}

	return &Locker{
		l:      conf.L,
		client: client,
		ttl:    ttl,
		retry:  retry,
	}
}

// Lock spins on SET NX PX until the key is free or ctx is done. The lease
// expires after the configured TTL even if the holder never releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}

		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for lock %s: %w", key, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

func (l *Locker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	if err != nil {
		l.l.LogErrorf("Could not release lock %v: %v", redisKey, err.Error())

		return
	}

	if n == 0 {
		l.l.LogErrorf("Could not release lock %v: %v", redisKey, ErrLockNotHeld)
	}
}
