package database

import (
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresDB{db: db}, mock
}

func TestPostgresTableExists(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery("information_schema.tables").
		WithArgs("events").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := p.TableExists("events")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPrimaryKeyAbsent(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery("table_constraints").
		WithArgs("heap").
		WillReturnError(sql.ErrNoRows)

	pk, err := p.PrimaryKey("heap")
	require.NoError(t, err)
	require.Empty(t, pk)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSelectRange(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "events" ORDER BY "id" LIMIT $1 OFFSET $2`)).
		WithArgs(int64(1000), int64(12000)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(12000), "tail"))

	columns, rows, err := p.SelectRange("events", "id", 12000, 1000)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, columns)
	require.Len(t, rows, 1)
	require.Equal(t, int64(12000), rows[0][0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertBatch(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "events" ("id", "name") VALUES ($1, $2)`))
	prep.ExpectExec().WithArgs(int64(1), "alpha").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := p.InsertBatch("events", []string{"id", "name"}, [][]any{{int64(1), "alpha"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteAll(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`TRUNCATE TABLE "events"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, p.DeleteAll("events"))
	require.NoError(t, mock.ExpectationsWereMet())
}
