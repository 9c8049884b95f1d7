// Package cache expone una abstracción chica de cache de bytes con un
// backend en memoria (go-cache) para dev y tests, y un backend redis para
// despliegues multi-instancia. El broker la usa para el cache de client
// por token y para las ventanas de rate limit.
package cache

import (
	"context"
	"time"
)

// Cache es el set de operaciones común a ambos backends.
type Cache interface {
	// Get devuelve el valor cacheado y si estaba presente.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set guarda un valor con TTL. TTL cero usa el default del
	// backend.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete elimina una clave.
	Delete(ctx context.Context, key string)

	// Incr incrementa un contador de forma atómica, creándolo con el TTL
	// dado en el primer uso. Para rate limiting de ventana fija.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
