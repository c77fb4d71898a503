package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("doctor schedule is locked by another writer")

type LockOptions struct {
	TTL        time.Duration // lock lifetime and deadline of the critical section
	MaxWait    time.Duration // how long to keep retrying; zero tries once
	RetryDelay time.Duration
	// OnWait and OnHeld, when set, receive the time spent acquiring and
	// holding the lock. OnWait also fires when acquisition fails.
	OnWait func(time.Duration)
	OnHeld func(time.Duration)
}

// DoctorLocker serializes schedule writers per doctor across processes with
// a SET NX key and a token checked on release.
type DoctorLocker struct {
	client *redis.Client
	opts   LockOptions
}

func NewDoctorLocker(client *redis.Client, opts LockOptions) *DoctorLocker {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 25 * time.Millisecond
	}
	return &DoctorLocker{client: client, opts: opts}
}

func lockKey(doctorRef string) string {
	return fmt.Sprintf("lock:doctor:%s", doctorRef)
}

func (l *DoctorLocker) WithDoctorLock(ctx context.Context, doctorRef string, fn func(ctx context.Context) error) error {
	key := lockKey(doctorRef)
	token := uuid.NewString()

	waitStart := time.Now()
	err := l.acquire(ctx, key, token)
	if l.opts.OnWait != nil {
		l.opts.OnWait(time.Since(waitStart))
	}
	if err != nil {
		return err
	}

	held := time.Now()
	defer func() {
		// release with a fresh context so a cancelled request still unlocks
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
		if l.opts.OnHeld != nil {
			l.opts.OnHeld(time.Since(held))
		}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.opts.TTL)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *DoctorLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.opts.MaxWait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return fmt.Errorf("acquire doctor lock: %w", err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.opts.RetryDelay):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *DoctorLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release doctor lock: %w", err)
	}
	return nil
}
