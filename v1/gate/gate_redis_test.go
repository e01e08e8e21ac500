package gate

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-jobgate/v1/identity"
	"github.com/mirkobrombin/go-jobgate/v1/lock"
)

func newRedisGates(t *testing.T, n int) ([]*Gate, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	gates := make([]*Gate, n)
	for i := range gates {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		gates[i] = New(lock.NewRedis(client), nil)
	}
	t.Cleanup(mr.Close)
	return gates, mr
}

func TestRedisGatesShareLease(t *testing.T) {
	gates, mr := newRedisGates(t, 2)
	ctx := context.Background()
	id := identity.ScmPushERPData

	var inner bool
	_ = gates[0].Run(ctx, id, func(context.Context) error {
		if v, _ := mr.Get(id.Key()); v != id.Marker() {
			t.Errorf("marker not stored, got %q", v)
		}
		_ = gates[1].Run(ctx, id, func(context.Context) error {
			inner = true
			return nil
		})
		return nil
	})
	if inner {
		t.Fatal("second instance ran while the first held the lease")
	}
	if mr.Exists(id.Key()) {
		t.Fatal("lease not released")
	}
}

func TestRedisGateRecoversFromCrashedHolder(t *testing.T) {
	gates, mr := newRedisGates(t, 1)
	ctx := context.Background()
	id := identity.FetchOrderCalculate
	if err := mr.Set(id.Key(), id.Marker()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	mr.SetTTL(id.Key(), id.Lease())

	var runs int
	work := func(context.Context) error { runs++; return nil }
	_ = gates[0].Run(ctx, id, work)
	if runs != 0 {
		t.Fatal("ran while crashed holder's lease was live")
	}
	mr.FastForward(id.Lease())
	_ = gates[0].Run(ctx, id, work)
	if runs != 1 {
		t.Fatal("lease did not self-heal after ttl")
	}
}

func TestRedisGateStoreDownSkipsWork(t *testing.T) {
	gates, mr := newRedisGates(t, 1)
	mr.Close()
	var ran bool
	if err := gates[0].Run(context.Background(), identity.PushSOToBD, func(context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("store failure leaked: %v", err)
	}
	if ran {
		t.Fatal("work ran with the store down")
	}
}
