package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestListConstraints(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"relname", "conname", "def"}).
		AddRow("follows", "cannot_follow_yourself", "CHECK ((user_id <> author_id))").
		AddRow("follows", "idx_follow_pair", "UNIQUE (user_id, author_id)")
	mock.ExpectQuery(`SELECT r.relname, c.conname, pg_get_constraintdef`).WillReturnRows(rows)

	got, err := ListConstraints(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Constraint{Table: "follows", Name: "cannot_follow_yourself", Definition: "CHECK ((user_id <> author_id))"}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListConstraints_SQLite(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	_, err = ListConstraints(context.Background(), db)
	assert.ErrorContains(t, err, "needs postgres")
}
