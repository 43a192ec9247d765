package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const sweepLockKey = "skylearn:scheduler:sweep"

// Only the replica that still holds its lease may delete the key; an
// expired lease taken over by another replica must survive the release.
const sweepUnlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`

var errNoLockClient = errors.New("scheduler: sweep lock has no redis client")

// SweepLock serializes the maintenance sweep across replicas. Each
// Acquire leases the sweep key under a fresh token so a release can
// never drop a lease the caller no longer owns. A nil SweepLock means
// single-instance mode and every sweep runs unguarded.
type SweepLock struct {
	client *redis.Client
	unlock *redis.Script
}

func NewSweepLock(client *redis.Client) *SweepLock {
	if client == nil {
		return nil
	}
	return &SweepLock{
		client: client,
		unlock: redis.NewScript(sweepUnlockScript),
	}
}

// Acquire leases the sweep key for ttl. owned reports whether this
// replica won the tick; the returned lease must be passed to Release.
func (l *SweepLock) Acquire(ctx context.Context, ttl time.Duration) (lease string, owned bool, err error) {
	if l == nil || l.client == nil {
		return "", false, errNoLockClient
	}
	if ttl <= 0 {
		return "", false, errors.New("scheduler: sweep lock ttl must be positive")
	}

	lease = uuid.NewString()
	owned, err = l.client.SetNX(ctx, sweepLockKey, lease, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return lease, owned, nil
}

// Release gives the sweep key back if the lease is still ours. It is
// safe on a nil lock and with an empty lease.
func (l *SweepLock) Release(ctx context.Context, lease string) error {
	if l == nil || l.client == nil || lease == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.client, []string{sweepLockKey}, lease).Err()
}
