package redis

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/authbroker/internal/cache"
)

// Redis es un backend de cache sobre una instancia compartida. Todas las
// claves llevan prefijo para poder compartir el server entre brokers.
type Redis struct {
	client *rdb.Client
	prefix string
}

func New(addr string, db int, prefix string) *Redis {
	if prefix == "" {
		prefix = "authbroker:"
	}
	return &Redis{
		client: rdb.NewClient(&rdb.Options{Addr: addr, DB: db}),
		prefix: prefix,
	}
}

var _ cache.Cache = (*Redis)(nil)

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) {
	_ = r.client.Del(ctx, r.key(key)).Err()
}

// Incr usa INCR + EXPIRE NX para setear el TTL exactamente una vez por
// ventana, manteniendo la semántica de ventana fija entre instancias.
func (r *Redis) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := r.key(key)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Ping verifica conectividad; lo usa readyz.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close libera el pool de conexiones subyacente.
func (r *Redis) Close() error { return r.client.Close() }
