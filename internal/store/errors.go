package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateNotification means a reference with the same resource, reminder kind
	// and day already exists.
	ErrDuplicateNotification = errors.New("store: duplicate notification reference")
	// ErrStaleStatus means a conditional status update found the row in another state.
	ErrStaleStatus = errors.New("store: status changed concurrently")
)

const (
	pgUniqueViolation     = "23505"
	mysqlDuplicateEntry   = 1062
	sqliteUniqueFailedMsg = "unique constraint failed"
)

// isUniqueConstraintError reports a uniqueness violation from any supported driver.
// gorm translates most of them into ErrDuplicatedKey; the driver checks cover paths
// where translation is off.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	if pgErr, ok := driverError[*pgconn.PgError](err); ok {
		return pgErr.Code == pgUniqueViolation
	}
	if myErr, ok := driverError[*mysql.MySQLError](err); ok {
		return myErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(strings.ToLower(err.Error()), sqliteUniqueFailedMsg)
}

func driverError[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}
