// Package rate implementa un limitador de ventana fija sobre el backend
// de cache: con redis los límites rigen entre instancias, y dev y tests
// quedan in-process.
package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/authbroker/internal/cache"
)

// Result describe una decisión de admisión.
type Result struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// Limiter admite o rechaza requests por clave en ventanas fijas.
type Limiter struct {
	cache  cache.Cache
	prefix string
}

func NewLimiter(c cache.Cache, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &Limiter{cache: c, prefix: prefix}
}

// Allow cuenta un hit contra key para el par limit/window dado. Los
// errores del backend fallan abiertos: el rate limiting es protección,
// no una compuerta de correctitud.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) Result {
	now := time.Now().UTC()
	winStart := now.Truncate(window)
	resetAt := winStart.Add(window)

	k := fmt.Sprintf("%s%s:%d", l.prefix, key, winStart.Unix())
	hits, err := l.cache.Incr(ctx, k, window)
	if err != nil {
		return Result{Allowed: true, Remaining: int64(limit), ResetAt: resetAt}
	}
	remaining := int64(limit) - hits
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: hits <= int64(limit), Remaining: remaining, ResetAt: resetAt}
}
