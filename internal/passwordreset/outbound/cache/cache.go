package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyPrefix = "passwordreset:secret:"

// clearScript deletes the key only while it holds ARGV[1].
// Returns 1 when deleted, 0 when absent, -1 when another value is stored.
var clearScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
	return 0
end
if cur == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return -1
`)

// Cache is a redis secret store. Redis holds no profile records, so every
// user counts as having one and GetSecret never reports goerror.ErrNotFound.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	ins    instrument.Instrumentation
}

// NewCache returns a store whose keys expire after ttl; zero keeps them until cleared.
func NewCache(client redis.UniversalClient, ttl time.Duration, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ttl: ttl, ins: ins}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("passwordreset.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Cache) GetSecret(ctx context.Context, userID string) (_ string, err error) {
	ctx, span := c.startSpan(ctx, "GetSecret")
	defer func() { c.endSpan(span, err) }()

	v, err := c.client.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return v, nil
}

func (c *Cache) CreateSecret(ctx context.Context, userID, sealed string) (err error) {
	ctx, span := c.startSpan(ctx, "CreateSecret")
	defer func() { c.endSpan(span, err) }()

	ok, err := c.client.SetNX(ctx, keyPrefix+userID, sealed, c.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return goerror.ErrConflict
	}

	return nil
}

func (c *Cache) ClearSecret(ctx context.Context, userID, sealed string) (_ bool, err error) {
	ctx, span := c.startSpan(ctx, "ClearSecret")
	defer func() { c.endSpan(span, err) }()

	res, err := clearScript.Run(ctx, c.client, []string{keyPrefix + userID}, sealed).Int()
	if err != nil {
		return false, err
	}

	switch res {
	case 1:
		return true, nil
	case 0:
		return false, nil
	case -1:
		return false, goerror.ErrConflict
	default:
		return false, fmt.Errorf("cache: unexpected clear result %d", res)
	}
}

// Ping backs the health endpoint.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
