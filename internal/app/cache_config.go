package app

import (
	"strings"

	"github.com/charlesng35/lifeadmin/internal/cache"
)

// RedisClientConfig maps the cache.redis section onto the Redis store settings. Address,
// username and key prefix are trimmed; the password is passed through untouched.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	r := c.Redis
	return cache.RedisConfig{
		Address:   strings.TrimSpace(r.Address),
		Username:  strings.TrimSpace(r.Username),
		Password:  r.Password,
		DB:        r.DB,
		TLS:       r.TLS,
		Timeout:   r.Timeout,
		KeyPrefix: strings.TrimSpace(r.KeyPrefix),
	}
}
