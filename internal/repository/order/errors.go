package order

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNotFound is returned when an order is missing.
	ErrNotFound = errors.New("order not found")

	// ErrStaleStatus is returned when the stored status no longer matches the
	// status the caller validated against.
	ErrStaleStatus = errors.New("order status changed concurrently")

	// ErrDuplicateNumber is returned when an issued order number collides with
	// an existing order. The transaction must be retried.
	ErrDuplicateNumber = errors.New("order number already taken")
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFragment = "UNIQUE constraint failed"
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), sqliteUniqueFragment)
}
