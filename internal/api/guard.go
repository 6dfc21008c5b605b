package api

import (
	"crypto/subtle"
	"errors"
	"slices"
	"strings"
	"sync"

	"offlinesync/internal/config"

	"golang.org/x/time/rate"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	clientKeyUnknown    = "unknown"
	defaultBurst        = 5

	permReadStatus = "read:status"
	permReadQueue  = "read:queue"
	permWriteQueue = "write:queue"
	permWriteSync  = "write:sync"
	permWriteCache = "write:cache"
)

var (
	errMissingKey = errors.New("missing api key header")
	errInvalidKey = errors.New("invalid api key")
	errForbidden  = errors.New("permission denied")
	errThrottled  = errors.New("rate limit exceeded")
)

// guard applies API-key authentication and per-caller rate limits. It is
// shared by the HTTP and gRPC transports, which only differ in how they
// extract the key and report the error.
type guard struct {
	enabled bool
	header  string
	clients []config.APIClientKey

	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newGuard(cfg config.APIConfig) *guard {
	header := strings.ToLower(strings.TrimSpace(cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = apiKeyHeaderDefault
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &guard{
		enabled: cfg.Auth.Enabled,
		header:  header,
		clients: slices.Clone(cfg.Auth.APIKeys),
		limit:   rate.Limit(cfg.RateLimit.RPS),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// check authenticates apiKey for permission and then charges caller's
// bucket. An empty permission means any valid key is accepted.
func (g *guard) check(apiKey, caller, permission string) error {
	if g.enabled {
		if err := g.authenticate(apiKey, permission); err != nil {
			return err
		}
	}
	if !g.allow(caller) {
		return errThrottled
	}
	return nil
}

func (g *guard) authenticate(apiKey, permission string) error {
	if apiKey == "" {
		return errMissingKey
	}
	client, ok := g.lookup(apiKey)
	if !ok {
		return errInvalidKey
	}
	if !permits(client, permission) {
		return errForbidden
	}
	return nil
}

// lookup compares apiKey against every configured key in constant time.
func (g *guard) lookup(apiKey string) (config.APIClientKey, bool) {
	var (
		found config.APIClientKey
		ok    bool
	)
	for _, c := range g.clients {
		if subtle.ConstantTimeCompare([]byte(c.Key), []byte(apiKey)) == 1 {
			found, ok = c, true
		}
	}
	return found, ok
}

// permits treats an empty permission list as allow-all.
func permits(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	return slices.ContainsFunc(client.Permissions, func(p string) bool {
		return strings.TrimSpace(p) == required
	})
}

func (g *guard) allow(caller string) bool {
	if g.limit <= 0 {
		return true
	}
	if caller == "" {
		caller = clientKeyUnknown
	}

	g.mu.Lock()
	lim, ok := g.buckets[caller]
	if !ok {
		lim = rate.NewLimiter(g.limit, g.burst)
		g.buckets[caller] = lim
	}
	g.mu.Unlock()

	return lim.Allow()
}
