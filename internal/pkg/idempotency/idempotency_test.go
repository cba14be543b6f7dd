package idempotency

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	opt, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_Exec(t *testing.T) {
	client := newRedis(t)
	g := NewRedis(client)
	ctx := context.Background()

	t.Run("runs once", func(t *testing.T) {
		calls := 0
		fn := func(context.Context) error { calls++; return nil }

		if err := g.Exec(ctx, "evt-1", fn); err != nil {
			t.Fatalf("first Exec() = %v", err)
		}
		if err := g.Exec(ctx, "evt-1", fn); !errors.Is(err, ErrCompleted) {
			t.Fatalf("second Exec() = %v, want ErrCompleted", err)
		}
		if calls != 1 {
			t.Fatalf("fn ran %d times", calls)
		}
	})

	t.Run("failure releases the claim", func(t *testing.T) {
		boom := errors.New("smtp down")
		if err := g.Exec(ctx, "evt-2", func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Exec() = %v", err)
		}
		if err := g.Exec(ctx, "evt-2", func(context.Context) error { return nil }); err != nil {
			t.Fatalf("retry Exec() = %v", err)
		}
	})

	t.Run("in progress", func(t *testing.T) {
		if err := client.Set(ctx, "idempotency:evt-3", string(StateInProgress), 0).Err(); err != nil {
			t.Fatal(err)
		}
		if err := g.Exec(ctx, "evt-3", func(context.Context) error { return nil }); !errors.Is(err, ErrInProgress) {
			t.Fatalf("Exec() = %v, want ErrInProgress", err)
		}
	})
}
