package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Constraint violations reported by the storage engine. A *StorageError
// matches one of these through errors.Is when the driver reports it.
var (
	// ErrUniqueViolation is matched by unique and primary key violations
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is matched by foreign key violations
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrNotNullViolation is matched by NOT NULL violations
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrCheckViolation is matched by check constraint violations
	ErrCheckViolation = errors.New("check constraint violation")
)

// StorageError wraps any failure reported by the database driver. The
// driver's message is preserved and the original error stays reachable
// through errors.Is/As.
type StorageError struct {
	SQL string
	Err error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %v", e.Err)
}

// Unwrap returns the driver error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the driver error is the given constraint violation
func (e *StorageError) Is(target error) bool {
	violation := e.violation()
	return violation != nil && target == violation
}

// Code returns the driver's error code when there is one: the SQLSTATE for
// PostgreSQL, the extended result code for SQLite
func (e *StorageError) Code() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code
	}
	var liteErr sqlite3.Error
	if errors.As(e.Err, &liteErr) {
		return fmt.Sprintf("SQLITE_%d", int(liteErr.ExtendedCode))
	}
	return ""
}

func (e *StorageError) violation() error {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrUniqueViolation
		case "23503": // foreign_key_violation
			return ErrForeignKeyViolation
		case "23502": // not_null_violation
			return ErrNotNullViolation
		case "23514": // check_violation
			return ErrCheckViolation
		}
		return nil
	}

	var liteErr sqlite3.Error
	if errors.As(e.Err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ErrUniqueViolation
		case sqlite3.ErrConstraintForeignKey:
			return ErrForeignKeyViolation
		case sqlite3.ErrConstraintNotNull:
			return ErrNotNullViolation
		case sqlite3.ErrConstraintCheck:
			return ErrCheckViolation
		}
	}
	return nil
}

// IsStorageError reports whether err came from the storage engine
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
