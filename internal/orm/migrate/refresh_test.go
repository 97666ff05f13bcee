package migrate

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relquery/internal/orm/storage"
)

func TestRefresh_Order(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	empty := func() *sqlmock.Rows { return sqlmock.NewRows(nil) }
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`DROP TABLE IF EXISTS "equipment"`)).WillReturnRows(empty())
	mock.ExpectQuery(regexp.QuoteMeta(`DROP TABLE IF EXISTS "model"`)).WillReturnRows(empty())
	mock.ExpectQuery(regexp.QuoteMeta(`DROP TABLE IF EXISTS "manufacturer"`)).WillReturnRows(empty())
	mock.ExpectQuery(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "manufacturer"`)).WillReturnRows(empty())
	mock.ExpectQuery(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "model"`)).WillReturnRows(empty())
	mock.ExpectQuery(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "equipment"`)).WillReturnRows(empty())
	mock.ExpectCommit()

	reg := testRegistry(t)
	err = Refresh(context.Background(), storage.NewSQLExecutor(db), reg, NewGenerator(reg, storage.DialectSQLite))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("DROP TABLE").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	reg := testRegistry(t)
	err = Refresh(context.Background(), storage.NewSQLExecutor(db), reg, NewGenerator(reg, storage.DialectSQLite))
	require.Error(t, err)
	assert.True(t, storage.IsStorageError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_SQLite(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := storage.Open(ctx, storage.Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	reg := testRegistry(t)
	exec := storage.NewSQLExecutor(db)
	gen := NewGenerator(reg, dialect)

	// Refreshing twice keeps the schema usable
	require.NoError(t, Refresh(ctx, exec, reg, gen))
	require.NoError(t, Refresh(ctx, exec, reg, gen))

	rows, err := exec.Execute(ctx, storage.Statement{SQL: `SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('manufacturer', 'model', 'equipment') ORDER BY name`})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "equipment", rows[0]["name"])
	assert.Equal(t, "manufacturer", rows[1]["name"])
	assert.Equal(t, "model", rows[2]["name"])
}
