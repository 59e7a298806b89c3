package app

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults fills secrets that were left empty with random values and returns the
// config keys it filled, never the values. Generated secrets live only for this process.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	secrets := []struct {
		key    string
		target *string
		size   int
	}{
		{key: "auth.jwt.secret", target: &cfg.Auth.JWT.Secret, size: jwtSecretBytes},
	}

	var generated []string
	for _, s := range secrets {
		if strings.TrimSpace(*s.target) != "" {
			continue
		}
		value, err := randomSecret(s.size)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", s.key, err)
		}
		*s.target = value
		generated = append(generated, s.key)
	}
	return generated, nil
}

// randomSecret returns size random bytes, URL-safe base64 encoded without padding.
func randomSecret(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("secret size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
