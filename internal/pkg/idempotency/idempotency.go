// Package idempotency guards at-least-once handlers so that a redelivered
// message runs its side effect once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInProgress means another worker holds the key.
	ErrInProgress = errors.New("idempotency: operation in progress")
	// ErrCompleted means the operation already succeeded.
	ErrCompleted = errors.New("idempotency: operation already completed")
)

// State is the value stored under a key.
type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

const (
	defaultPrefix       = "idempotency:"
	defaultLockDuration = time.Minute
	defaultDoneTTL      = 24 * time.Hour
)

// Guard runs fn at most once per key.
type Guard interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// Option tunes Exec.
type Option func(*execOptions)

type execOptions struct {
	lock time.Duration
	done time.Duration
}

// WithLockDuration bounds how long an in-progress claim survives a crashed worker.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) {
		if d > 0 {
			o.lock = d
		}
	}
}

// WithCompletedTTL sets how long a completed key suppresses duplicates.
func WithCompletedTTL(d time.Duration) Option {
	return func(o *execOptions) {
		if d > 0 {
			o.done = d
		}
	}
}

// releaseScript deletes the key only while it still holds our in-progress claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Guard backed by SET NX.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Guard storing state under "idempotency:<key>".
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: defaultPrefix}
}

// Exec claims key, runs fn and records completion. When fn fails the claim
// is released so a redelivery can try again.
func (r *Redis) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lock: defaultLockDuration, done: defaultDoneTTL}
	for _, opt := range opts {
		opt(&o)
	}

	fk := r.prefix + key
	ok, err := r.client.SetNX(ctx, fk, string(StateInProgress), o.lock).Result()
	if err != nil {
		return fmt.Errorf("idempotency: claim %s: %w", key, err)
	}
	if !ok {
		return r.existing(ctx, fk)
	}

	if err := fn(ctx); err != nil {
		// Release on a fresh context so a canceled caller does not leave the key locked.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if relErr := releaseScript.Run(relCtx, r.client, []string{fk}, string(StateInProgress)).Err(); relErr != nil {
			return errors.Join(err, fmt.Errorf("idempotency: release %s: %w", key, relErr))
		}
		return err
	}

	if err := r.client.Set(ctx, fk, string(StateCompleted), o.done).Err(); err != nil {
		return fmt.Errorf("idempotency: complete %s: %w", key, err)
	}
	return nil
}

func (r *Redis) existing(ctx context.Context, fk string) error {
	v, err := r.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; let the broker redeliver.
		return ErrInProgress
	}
	if err != nil {
		return fmt.Errorf("idempotency: read %s: %w", fk, err)
	}

	if State(v) == StateCompleted {
		return ErrCompleted
	}
	return ErrInProgress
}
