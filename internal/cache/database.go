package cache

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/lifeadmin/internal/models"
)

var errDatabaseStoreNotInitialised = errors.New("cache: database store not initialised")

// DatabaseStore keeps cache entries in the cache_entries table. It is used when Redis is
// disabled or unreachable at startup.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore returns nil for a nil db.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// withEntry runs fn in a transaction holding a row lock on key. fn receives nil when
// the key has no row.
func (s *DatabaseStore) withEntry(ctx context.Context, key string, fn func(tx *gorm.DB, entry *models.CacheEntry) error) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	return s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, byKey(key)).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fn(tx, nil)
		case err != nil:
			return err
		default:
			return fn(tx, &entry)
		}
	})
}

// IncrementWithTTL starts a fresh window when the counter is missing or expired.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.clock()

	var count int64
	var resetAt time.Time
	err := s.withEntry(ctx, key, func(tx *gorm.DB, entry *models.CacheEntry) error {
		if entry == nil || entry.Expired(now) {
			count, resetAt = 1, now.Add(window)
		} else {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count, resetAt = current+1, entry.ExpiresAt
		}
		return s.put(tx, entry == nil, key, []byte(strconv.FormatInt(count, 10)), resetAt)
	})
	if err != nil {
		return 0, 0, err
	}
	return count, resetAt.Sub(now), nil
}

func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	entry := models.CacheEntry{Key: key, Value: value, ExpiresAt: s.expiry(ttl)}
	return s.db.WithContext(ensureContext(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get treats an expired row as a miss and removes it.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errDatabaseStoreNotInitialised
	}
	ctx = ensureContext(ctx)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, byKey(key)).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case entry.Expired(s.now()):
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ensureContext(ctx)).Where(byKey(keys)).Delete(&models.CacheEntry{}).Error
}

// SetIfAbsent replaces expired rows. Losing an insert race to another writer reports
// false rather than an error.
func (s *DatabaseStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := s.clock()
	stored := false
	err := s.withEntry(ctx, key, func(tx *gorm.DB, entry *models.CacheEntry) error {
		if entry != nil && !entry.Expired(now) {
			return nil
		}
		if err := s.put(tx, entry == nil, key, value, s.expiry(ttl)); err != nil {
			return err
		}
		stored = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return stored, err
}

func (s *DatabaseStore) DeleteIfValue(ctx context.Context, key string, value []byte) (bool, error) {
	deleted := false
	err := s.withEntry(ctx, key, func(tx *gorm.DB, entry *models.CacheEntry) error {
		if entry == nil || !bytes.Equal(entry.Value, value) {
			return nil
		}
		res := tx.Where(byKey(key)).Delete(&models.CacheEntry{})
		deleted = res.RowsAffected > 0
		return res.Error
	})
	return deleted, err
}

func (s *DatabaseStore) put(tx *gorm.DB, insert bool, key string, value []byte, expiresAt time.Time) error {
	if insert {
		return tx.Create(&models.CacheEntry{Key: key, Value: value, ExpiresAt: expiresAt}).Error
	}
	return tx.Model(&models.CacheEntry{}).Where(byKey(key)).
		Updates(map[string]any{"value": value, "expires_at": expiresAt}).Error
}

func (s *DatabaseStore) clock() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.now().UTC()
}

func (s *DatabaseStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.clock().Add(ttl)
}

// byKey quotes the column, since key is reserved in MySQL. A slice becomes IN.
func byKey(key any) map[string]any {
	return map[string]any{"key": key}
}
