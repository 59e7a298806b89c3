// Package store is the persistence gateway used by the reminder engine. It hides gorm
// behind filter structs so sweepers only describe which rows they want.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Store wraps a gorm handle with the queries needed by sweepers and the notification service.
type Store struct {
	db *gorm.DB
}

// New constructs a Store.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx)
}

func applyPaging(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
