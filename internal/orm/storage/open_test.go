package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := Open(ctx, Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DialectSQLite, dialect)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	exec := NewSQLExecutor(db)
	_, err = exec.Execute(ctx, Statement{SQL: `CREATE TABLE "manufacturer" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" VARCHAR(255) NOT NULL)`})
	require.NoError(t, err)

	rows, err := exec.Execute(ctx, Statement{SQL: `INSERT INTO "manufacturer" ("name") VALUES (?) RETURNING "id"`, Args: []interface{}{"ACME"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["id"])

	rows, err = exec.Execute(ctx, Statement{SQL: `SELECT "name" FROM "manufacturer"`})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME", rows[0]["name"])
}

func TestOpen_SQLiteErrorCode(t *testing.T) {
	ctx := context.Background()
	db, _, err := Open(ctx, Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLExecutor(db).Execute(ctx, Statement{SQL: `SELECT * FROM "missing"`})
	require.Error(t, err)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "no such table")
	assert.Equal(t, "SQLITE_1", se.Code())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, _, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestStorageError_ConstraintViolations(t *testing.T) {
	ctx := context.Background()
	db, _, err := Open(ctx, Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	exec := NewSQLExecutor(db)
	_, err = exec.Execute(ctx, Statement{SQL: `CREATE TABLE "manufacturer" ("id" INTEGER PRIMARY KEY, "name" VARCHAR(255) NOT NULL UNIQUE)`})
	require.NoError(t, err)

	_, err = exec.Execute(ctx, Statement{SQL: `INSERT INTO "manufacturer" ("name") VALUES (?)`, Args: []interface{}{"ACME"}})
	require.NoError(t, err)

	_, err = exec.Execute(ctx, Statement{SQL: `INSERT INTO "manufacturer" ("name") VALUES (?)`, Args: []interface{}{"ACME"}})
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.NotErrorIs(t, err, ErrNotNullViolation)

	_, err = exec.Execute(ctx, Statement{SQL: `INSERT INTO "manufacturer" ("name") VALUES (NULL)`})
	assert.ErrorIs(t, err, ErrNotNullViolation)
}
