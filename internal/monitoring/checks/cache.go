package checks

import (
	"context"
	"time"

	"github.com/charlesng35/lifeadmin/internal/monitoring"
)

const defaultCacheTimeout = 2 * time.Second

// Pinger is satisfied by the Redis cache store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache probes the store holding rate-limit counters and sweep locks. With Redis turned off
// the database fallback is in use and the probe is up. With Redis turned on but no client,
// startup already fell back to the database, so the probe is degraded rather than down.
func Cache(redis Pinger, redisEnabled bool, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		result := func(status monitoring.ProbeStatus, details string) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: status, Details: details, Duration: time.Since(start)}
		}

		switch {
		case !redisEnabled:
			return result(monitoring.StatusUp, "backend: database")
		case redis == nil:
			return result(monitoring.StatusDegraded, "backend: database (redis unreachable at startup)")
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultCacheTimeout))
		defer cancel()
		if err := redis.Ping(probeCtx); err != nil {
			return monitoring.ResultFromError("redis", err, time.Since(start))
		}
		return result(monitoring.StatusUp, "backend: redis")
	})
}
