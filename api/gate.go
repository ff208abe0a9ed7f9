package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// APIKeyHeader carries the caller's key.
const APIKeyHeader = "X-API-Key"

// KeyGate admits requests carrying a known API key and limits each key to a
// number of requests per minute. A gate without keys admits everything.
type KeyGate struct {
	mu        sync.Mutex
	keys      map[string]struct{}
	limiters  map[string]*rate.Limiter
	perMinute int
	now       func() time.Time
}

// NewKeyGate creates a gate for keys. perMinute <= 0 disables rate limiting.
func NewKeyGate(keys []string, perMinute int) *KeyGate {
	g := &KeyGate{
		keys:      make(map[string]struct{}, len(keys)),
		limiters:  make(map[string]*rate.Limiter, len(keys)),
		perMinute: perMinute,
		now:       time.Now,
	}
	for _, k := range keys {
		if k != "" {
			g.keys[k] = struct{}{}
		}
	}
	return g
}

// Enabled reports whether any key is configured.
func (g *KeyGate) Enabled() bool {
	return len(g.keys) > 0
}

// Admit returns ErrUnauthorized for an unknown key and ErrRateLimited once
// the key's allowance for the current minute is spent.
func (g *KeyGate) Admit(key string) error {
	if !g.Enabled() {
		return nil
	}
	if _, ok := g.keys[key]; !ok {
		return ErrUnauthorized
	}
	if g.perMinute <= 0 {
		return nil
	}
	if !g.limiter(key).AllowN(g.now(), 1) {
		return ErrRateLimited
	}
	return nil
}

func (g *KeyGate) limiter(key string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(g.perMinute)), g.perMinute)
		g.limiters[key] = l
	}
	return l
}
