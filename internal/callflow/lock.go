package callflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"voiceagent/pkg/utils"
)

// SessionLocker serializes turns within one call session. Acquire returns a
// release func and whether the lock was obtained; callers decide what to do
// when it was not.
type SessionLocker interface {
	Acquire(ctx context.Context, sid string) (release func(), acquired bool, err error)
}

const (
	lockTTL          = 30 * time.Second
	lockPollInterval = 50 * time.Millisecond
	lockWait         = 2 * time.Second
)

// RedisSessionLocker backs SessionLocker with a per-SID Redis lock. Waiting
// is bounded; a busy session eventually yields acquired=false rather than
// blocking the webhook.
type RedisSessionLocker struct {
	rdb *redis.Client
}

func NewRedisSessionLocker(rdb *redis.Client) (*RedisSessionLocker, error) {
	if rdb == nil {
		return nil, errors.New("callflow: redis client is required")
	}
	return &RedisSessionLocker{rdb: rdb}, nil
}

func (l *RedisSessionLocker) Acquire(ctx context.Context, sid string) (func(), bool, error) {
	key := "call-session:" + sid
	token := uuid.NewString()
	deadline := time.Now().Add(lockWait)

	for {
		ok, err := utils.AcquireSessionLock(ctx, l.rdb, key, token, lockTTL)
		if err != nil {
			return func() {}, false, err
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = utils.ReleaseSessionLock(releaseCtx, l.rdb, key, token)
			}, true, nil
		}
		if time.Now().After(deadline) {
			return func() {}, false, nil
		}
		select {
		case <-ctx.Done():
			return func() {}, false, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
