package app

import (
	"strings"

	"github.com/charlesng35/lifeadmin/internal/auth"
)

// JWTServiceConfig maps auth.jwt onto the token verifier. TTL and leeway defaults are
// applied by auth.NewJWTService.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	jwt := c.JWT
	return auth.JWTConfig{
		Secret:         strings.TrimSpace(jwt.Secret),
		Issuer:         strings.TrimSpace(jwt.Issuer),
		AccessTokenTTL: jwt.TTL,
		Leeway:         jwt.Leeway,
	}
}
