package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() { _ = sqlxDB.Close() })
	return sqlxDB, mock
}

var noteRowColumns = []string{"id", "title", "category", "subject", "description", "uploader_id", "upload_date",
	"downloads", "tags", "blob_locator", "file_name", "file_size", "rating_sum", "rating_count"}

func noteViewRows() *sqlmock.Rows {
	return sqlmock.NewRows(append(append([]string{}, noteRowColumns...), "uploader_name"))
}

func addNoteView(rows *sqlmock.Rows, id, title string, uploaded time.Time, downloads, sum, count int64) *sqlmock.Rows {
	return rows.AddRow(id, title, "Math", "Calculus", "", "u1", uploaded, downloads, `["a","b"]`, "blob-"+id, title+".pdf", int64(2048), sum, count, "alice")
}
