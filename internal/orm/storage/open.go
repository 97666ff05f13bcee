package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite3" database/sql driver
	_ "github.com/mattn/go-sqlite3"
)

// Config names the driver and data source to open
type Config struct {
	Driver string
	DSN    string
}

// Open opens and pings a database. SQLite in-memory databases are pinned to a
// single connection because each connection would otherwise see its own
// empty database.
func Open(ctx context.Context, cfg Config) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, dialect, err
	}

	driver := "sqlite3"
	if dialect == DialectPostgres {
		driver = "pgx"
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, dialect, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if dialect == DialectSQLite && isMemoryDSN(cfg.DSN) {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dialect, &StorageError{SQL: "PING", Err: err}
	}

	return db, dialect, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
