package database

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func migrationFiles() fstest.MapFS {
	return fstest.MapFS{
		"002_reviews_product_idx.up.sql": {Data: []byte("CREATE INDEX reviews_product_idx ON reviews (product_id);")},
		"001_reviews.up.sql":             {Data: []byte("CREATE TABLE reviews (id UUID PRIMARY KEY);")},
		"001_reviews.down.sql":           {Data: []byte("DROP TABLE reviews;")},
		"README.md":                      {Data: []byte("not a migration")},
	}
}

func newMigrationMock(t *testing.T, applied ...string) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	rows := pgxmock.NewRows([]string{"version"})
	for _, v := range applied {
		rows.AddRow(v)
	}
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(rows)
	return mock
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock := newMigrationMock(t)
	for _, m := range []struct{ name, stmt string }{
		{"001_reviews.up.sql", "CREATE TABLE reviews"},
		{"002_reviews_product_idx.up.sql", "CREATE INDEX reviews_product_idx"},
	} {
		mock.ExpectBegin()
		mock.ExpectExec(m.stmt).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(m.name).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
	}

	require.NoError(t, RunMigrations(context.Background(), mock, migrationFiles(), discardLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	mock := newMigrationMock(t, "001_reviews.up.sql")
	mock.ExpectBegin()
	mock.ExpectExec("CREATE INDEX reviews_product_idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_reviews_product_idx.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(context.Background(), mock, migrationFiles(), discardLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_NothingPending(t *testing.T) {
	mock := newMigrationMock(t, "001_reviews.up.sql", "002_reviews_product_idx.up.sql")

	require.NoError(t, RunMigrations(context.Background(), mock, migrationFiles(), discardLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorRollsBackWithoutRetry(t *testing.T) {
	mock := newMigrationMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE reviews").
		WillReturnError(errStr(`syntax error at or near "UUID"`))
	mock.ExpectRollback()

	err := RunMigrations(context.Background(), mock, migrationFiles(), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_reviews.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}
