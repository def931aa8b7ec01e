package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sahilchouksey/coursehub-api/utils/cache"
)

func TestRefreshRegistries(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://"+mr.Addr(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	registries := map[string]RefreshRegistry{
		"memory": NewMemoryRefreshRegistry(),
		"redis":  NewRedisRefreshRegistry(rc),
	}

	for name, reg := range registries {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)

			ok, err := reg.Consume(ctx, "jti-1", exp)
			if err != nil || !ok {
				t.Fatalf("first consume = %v, %v", ok, err)
			}
			ok, err = reg.Consume(ctx, "jti-1", exp)
			if err != nil || ok {
				t.Fatalf("second consume = %v, %v", ok, err)
			}
			if ok, _ := reg.Consume(ctx, "jti-2", exp); !ok {
				t.Fatal("distinct jti rejected")
			}
		})
	}
}

func TestMemoryRegistryPurge(t *testing.T) {
	reg := NewMemoryRefreshRegistry()
	ctx := context.Background()
	reg.Consume(ctx, "old", time.Now().Add(-time.Minute))
	reg.Consume(ctx, "new", time.Now().Add(time.Hour))

	if n := reg.Purge(ctx); n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	if ok, _ := reg.Consume(ctx, "new", time.Now().Add(time.Hour)); ok {
		t.Fatal("live entry was purged")
	}
}
