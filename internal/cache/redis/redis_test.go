package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	rediscache "github.com/dropDatabas3/authbroker/internal/cache/redis"
)

func newCache(t *testing.T) (*rediscache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := rediscache.New(mr.Addr(), 0, "test:")
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestSetGet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("hit on missing key")
	}
	c.Set(ctx, "k", []byte("v"), time.Minute)
	b, ok := c.Get(ctx, "k")
	if !ok || string(b) != "v" {
		t.Fatalf("get: ok=%v b=%q", ok, b)
	}

	c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("hit after delete")
	}
}

func TestTTLExpiry(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Second)
	mr.FastForward(2 * time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("hit after expiry")
	}
}

func TestIncr(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := c.Incr(ctx, "ctr", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if n != want {
			t.Fatalf("incr = %d, want %d", n, want)
		}
	}

	// The window TTL starts with the first increment and is not renewed.
	mr.FastForward(2 * time.Minute)
	n, err := c.Incr(ctx, "ctr", time.Minute)
	if err != nil {
		t.Fatalf("incr after expiry: %v", err)
	}
	if n != 1 {
		t.Fatalf("counter did not reset: %d", n)
	}
}

func TestKeyPrefix(t *testing.T) {
	c, mr := newCache(t)
	c.Set(context.Background(), "k", []byte("v"), time.Minute)
	if !mr.Exists("test:k") {
		t.Fatal("key not namespaced with prefix")
	}
}
