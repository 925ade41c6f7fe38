package vendorapi

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vantrack/fleetsync-go/internal/config"
)

// Limiter enforces the vendor's network-origin rate limit across every worker
// process through shared redis state. An in-process counter cannot do this:
// the vendor throttles by origin, not by caller.
type Limiter struct {
	rdb         *redis.Client
	maxPerSec   int
	burstWindow time.Duration
	backoffBase time.Duration
	backoffCap  time.Duration
	keyPrefix   string
}

// maxAcquireWait bounds how long a single Acquire may block
const maxAcquireWait = 2 * time.Minute

// setBackoffIfLater stores the new backoff-until only when it is later than
// the current one, so concurrent workers never shorten an active backoff
var setBackoffIfLater = redis.NewScript(`
	local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
	local new = tonumber(ARGV[1])
	if new > cur then
		redis.call('SET', KEYS[1], new, 'PX', ARGV[2])
		return new
	end
	return cur
`)

// NewLimiter creates a redis-backed shared limiter
func NewLimiter(rdb *redis.Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		rdb:         rdb,
		maxPerSec:   cfg.MaxCallsPerSecond,
		burstWindow: cfg.BurstWindow,
		backoffBase: cfg.BackoffBase,
		backoffCap:  cfg.BackoffCap,
		keyPrefix:   "fleetsync:vendor",
	}
}

// Acquire blocks until the caller holds one unit of vendor call budget.
// It first honors any globally published backoff, then takes a slot from
// the per-second counter. Waits are bounded by ctx and maxAcquireWait.
func (l *Limiter) Acquire(ctx context.Context) error {
	deadline := time.Now().Add(maxAcquireWait)

	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("rate limiter: no budget within %s", maxAcquireWait)
		}

		until, err := l.BackoffUntil(ctx)
		if err != nil {
			return fmt.Errorf("rate limiter: read backoff state: %w", err)
		}
		if wait := time.Until(until); wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		ok, err := l.tryTake(ctx)
		if err != nil {
			return fmt.Errorf("rate limiter: take slot: %w", err)
		}
		if ok {
			return nil
		}

		// Bucket full; wait for the next one-second window
		next := time.Now().Truncate(time.Second).Add(time.Second)
		if err := sleep(ctx, time.Until(next)); err != nil {
			return err
		}
	}
}

// tryTake increments the current one-second bucket; INCR is atomic, so two
// workers can never both observe spare budget in the same slot
func (l *Limiter) tryTake(ctx context.Context) (bool, error) {
	bucket := fmt.Sprintf("%s:calls:%d", l.keyPrefix, time.Now().Unix())

	n, err := l.rdb.Incr(ctx, bucket).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		// First caller in the window owns the expiry
		l.rdb.Expire(ctx, bucket, l.burstWindow+time.Second)
	}

	return n <= int64(l.maxPerSec), nil
}

// PublishBackoff records a globally visible backoff-until timestamp after a
// vendor throttle signal and returns the applied delay. attempt starts at 0.
func (l *Limiter) PublishBackoff(ctx context.Context, attempt int) (time.Duration, error) {
	delay := l.backoffBase << uint(attempt)
	if delay > l.backoffCap || delay <= 0 {
		delay = l.backoffCap
	}

	until := time.Now().Add(delay)
	key := l.keyPrefix + ":backoff_until"
	px := delay + time.Minute

	if err := setBackoffIfLater.Run(ctx, l.rdb, []string{key},
		until.UnixMilli(), px.Milliseconds()).Err(); err != nil {
		return delay, fmt.Errorf("rate limiter: publish backoff: %w", err)
	}

	return delay, nil
}

// BackoffUntil returns the shared backoff-until instant, zero when none is active
func (l *Limiter) BackoffUntil(ctx context.Context) (time.Time, error) {
	ms, err := l.rdb.Get(ctx, l.keyPrefix+":backoff_until").Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// RecentCallCount reports calls taken in the current one-second window,
// exposed for operational state inspection
func (l *Limiter) RecentCallCount(ctx context.Context) (int64, error) {
	bucket := fmt.Sprintf("%s:calls:%d", l.keyPrefix, time.Now().Unix())
	n, err := l.rdb.Get(ctx, bucket).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// sleep waits for d or until ctx is cancelled
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
