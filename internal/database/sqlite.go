package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqliteBusyTimeoutMS = "5000"

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, err := buildSQLiteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	if isSQLiteMemory(cfg) {
		// Every pooled connection to a shared in-memory database sees the same data only
		// while one connection stays open.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(1)
	}

	return db, nil
}

// buildSQLiteDSN enables foreign keys and a busy timeout so the scheduler and API can write
// concurrently. Transactions begin IMMEDIATE: the cache lock's read-then-write transaction
// must hold the write lock from the start, since SQLite ignores SELECT ... FOR UPDATE.
func buildSQLiteDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}

	params := url.Values{}
	params.Set("_foreign_keys", "1")
	params.Set("_busy_timeout", sqliteBusyTimeoutMS)
	params.Set("_txlock", "immediate")

	if isSQLiteMemory(cfg) {
		params.Set("cache", "shared")
		return "file::memory:?" + params.Encode(), nil
	}

	path := strings.TrimSpace(cfg.Path)
	if err := ensureDir(path); err != nil {
		return "", fmt.Errorf("sqlite: create data directory: %w", err)
	}
	params.Set("_journal_mode", "WAL")
	return "file:" + filepath.ToSlash(path) + "?" + params.Encode(), nil
}

func isSQLiteMemory(cfg Config) bool {
	path := strings.TrimSpace(cfg.Path)
	return cfg.DSN == "" && (path == "" || strings.EqualFold(path, ":memory:"))
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
