// Package storage is the boundary between the ORM and the database driver.
// Built statements go in, flat rows come out; nothing above this package
// touches database/sql.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Dialect selects placeholder and DDL conventions
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// String returns the string representation of the dialect
func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// ParseDialect maps a database/sql driver name to its dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	default:
		return DialectSQLite, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// Statement is a built SQL statement ready for execution
type Statement struct {
	SQL  string
	Args []interface{}
	// Aliases lists the table aliases present in FROM/JOIN
	Aliases []string
}

// Row is one flat result row keyed by column label
type Row map[string]interface{}

// Executor runs statements against the storage engine
type Executor interface {
	// Execute sends a statement and returns all result rows
	Execute(ctx context.Context, stmt Statement) ([]Row, error)
	// Transaction runs fn with an executor bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(Executor) error) error
}

// Querier is the subset of *sql.DB and *sql.Tx the executor needs
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// SQLExecutor executes statements through database/sql
type SQLExecutor struct {
	db      *sql.DB
	q       Querier
	inTx    bool
	logger  *zap.Logger
	metrics *Metrics
}

// Option configures an SQLExecutor
type Option func(*SQLExecutor)

// WithLogger logs every statement at debug level
func WithLogger(logger *zap.Logger) Option {
	return func(e *SQLExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records statement counts and latencies
func WithMetrics(m *Metrics) Option {
	return func(e *SQLExecutor) { e.metrics = m }
}

// NewSQLExecutor creates an executor over a database handle
func NewSQLExecutor(db *sql.DB, opts ...Option) *SQLExecutor {
	e := &SQLExecutor{
		db:     db,
		q:      db,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements Executor
func (e *SQLExecutor) Execute(ctx context.Context, stmt Statement) ([]Row, error) {
	start := time.Now()
	e.logger.Debug("query",
		zap.String("sql", stmt.SQL),
		zap.Any("params", stmt.Args),
		zap.Bool("tx", e.inTx),
	)

	rows, err := e.q.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		e.finish(stmt, start, err)
		return nil, &StorageError{SQL: stmt.SQL, Err: err}
	}
	defer rows.Close()

	result, err := scanRows(rows)
	e.finish(stmt, start, err)
	if err != nil {
		return nil, &StorageError{SQL: stmt.SQL, Err: err}
	}
	return result, nil
}

func (e *SQLExecutor) finish(stmt Statement, start time.Time, err error) {
	took := time.Since(start)
	e.metrics.observe(err, took)
	if err != nil {
		e.logger.Warn("query failed", zap.String("sql", stmt.SQL), zap.Duration("took", took), zap.Error(err))
		return
	}
	e.logger.Debug("query done", zap.Duration("took", took))
}

// Transaction implements Executor. Calls made on an executor that is already
// bound to a transaction join it instead of nesting.
func (e *SQLExecutor) Transaction(ctx context.Context, fn func(Executor) error) error {
	if e.inTx {
		return fn(e)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{SQL: "BEGIN", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Warn("rollback failed", zap.Error(rbErr))
			}
			panic(p)
		}
	}()

	txExec := &SQLExecutor{db: e.db, q: tx, inTx: true, logger: e.logger, metrics: e.metrics}
	if err := fn(txExec); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{SQL: "COMMIT", Err: err}
	}
	return nil
}

// scanRows scans SQL rows into a slice of maps keyed by column label
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([]Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(Row, len(columns))
		for i, col := range columns {
			// Text columns may come back as []byte depending on the driver
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
