package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/authbroker/internal/cache"
)

// Mem es un cache in-process sobre go-cache.
type Mem struct {
	c *gocache.Cache

	// Los increments de go-cache no son atómicos en create-if-absent,
	// así que el alta del contador se protege acá.
	mu sync.Mutex
}

func New(defaultTTL time.Duration) *Mem {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Mem{c: gocache.New(defaultTTL, time.Minute)}
}

var _ cache.Cache = (*Mem)(nil)

func (m *Mem) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *Mem) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.c.Set(key, value, ttl)
}

func (m *Mem) Delete(_ context.Context, key string) {
	m.c.Delete(key)
}

func (m *Mem) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.c.Get(key); !ok {
		m.c.Set(key, int64(0), ttl)
	}
	n, err := m.c.IncrementInt64(key, 1)
	if err != nil {
		// La clave expiró entre Get e Increment; arranca otra ventana.
		m.c.Set(key, int64(1), ttl)
		return 1, nil
	}
	return n, nil
}
