package database

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

// buildPostgresDSN renders a keyword/value connection string. The session timezone defaults
// to UTC so timestamptz values come back in the zone the sweep windows are computed in.
// The result is checked with pgconn so a malformed DSN fails at startup, not on first query.
func buildPostgresDSN(cfg Config) (string, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		if cfg.User == "" || cfg.Name == "" {
			return "", errors.New("postgres configuration requires user and database name")
		}

		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		port := cfg.Port
		if port == 0 {
			port = 5432
		}

		params := []string{
			"host=" + quoteDSNValue(host),
			fmt.Sprintf("port=%d", port),
			"user=" + quoteDSNValue(cfg.User),
			"dbname=" + quoteDSNValue(cfg.Name),
		}
		if cfg.Password != "" {
			params = append(params, "password="+quoteDSNValue(cfg.Password))
		}

		options := map[string]string{
			"sslmode":  "disable",
			"TimeZone": "UTC",
		}
		for key, value := range cfg.Options {
			options[key] = value
		}
		keys := make([]string, 0, len(options))
		for key := range options {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			params = append(params, key+"="+quoteDSNValue(options[key]))
		}
		dsn = strings.Join(params, " ")
	}

	if _, err := pgconn.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("postgres dsn: %w", err)
	}
	return dsn, nil
}

// quoteDSNValue quotes values that contain spaces, quotes or backslashes, per libpq rules.
func quoteDSNValue(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}
