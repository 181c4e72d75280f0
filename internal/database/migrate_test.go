package database

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("CREATE INDEX b;")},
		"m/000002_second.down.sql": {Data: []byte("DROP INDEX b;")},
		"m/000001_first.up.sql":    {Data: []byte("CREATE TABLE a();")},
		"m/000001_first.down.sql":  {Data: []byte("DROP TABLE a;")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	list, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, Migration{Version: 1, Name: "first", Up: "CREATE TABLE a();", Down: "DROP TABLE a;"}, list[0])
	assert.Equal(t, "000002_second", list[1].String())
}

func TestLoadMigrations_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{"no down", fstest.MapFS{"m/000001_a.up.sql": {}}, "no down script"},
		{"no name", fstest.MapFS{"m/000001.up.sql": {}, "m/000001.down.sql": {}}, "want NNNNNN_name"},
		{"bad version", fstest.MapFS{"m/abc_a.up.sql": {}, "m/abc_a.down.sql": {}}, "bad version"},
		{"duplicate", fstest.MapFS{
			"m/000001_a.up.sql": {}, "m/000001_a.down.sql": {},
			"m/000001_b.up.sql": {}, "m/000001_b.down.sql": {},
		}, "used by"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fsys, "m")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func newMockMigrator(t *testing.T, list []Migration) (*Migrator, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return &Migrator{db: db, migrations: list}, mock
}

func expectApplied(mock sqlmock.Sqlmock, versions ...int) {
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"version"})
	for _, v := range versions {
		rows.AddRow(v)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations ORDER BY version")).WillReturnRows(rows)
}

func TestMigrator_Up(t *testing.T) {
	list := []Migration{
		{Version: 1, Name: "first", Up: "CREATE TABLE a()"},
		{Version: 2, Name: "second", Up: "CREATE INDEX b"},
	}
	m, mock := newMockMigrator(t, list)

	expectApplied(mock, 1)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version, name) VALUES ($1, $2)")).
		WithArgs(2, "second").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_UpRefusesUnknownVersions(t *testing.T) {
	m, mock := newMockMigrator(t, []Migration{{Version: 1, Name: "first"}})
	expectApplied(mock, 1, 5)

	_, err := m.Up(context.Background())
	assert.ErrorContains(t, err, "000005")
}

func TestMigrator_Down(t *testing.T) {
	list := []Migration{{Version: 1, Name: "first", Down: "DROP TABLE a"}}
	m, mock := newMockMigrator(t, list)

	assert.ErrorContains(t, m.Down(context.Background(), 9), "not found")

	expectApplied(mock)
	assert.ErrorContains(t, m.Down(context.Background(), 1), "has not been applied")

	expectApplied(mock, 1)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schema_migrations WHERE version = $1")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, m.Down(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
