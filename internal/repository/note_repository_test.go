package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-notes-api/internal/models"
)

func TestNoteRepositoryCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	note := &models.Note{
		ID: "n1", Title: "T", Category: "Math", Subject: "Calc", UploaderID: "u1",
		UploadDate: time.Now().UTC(), Tags: models.Tags{"a", "b", "c"},
		BlobLocator: "20240101_000000_abcd1234_t.pdf", FileName: "t.pdf", FileSize: 10,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes")).
		WithArgs("n1", "T", "Math", "Calc", "", "u1", sqlmock.AnyArg(), `["a","b","c"]`, note.BlobLocator, "t.pdf", int64(10)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), note))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryFindByIDMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notes n WHERE n.id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(noteRowColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestNoteRepositoryFindView(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("JOIN users u ON u.id = n.uploader_id WHERE n.id = $1")).
		WithArgs("n1").
		WillReturnRows(addNoteView(noteViewRows(), "n1", "Limits", now, 3, 9, 2))

	view, err := repo.FindView(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "alice", view.UploaderName)
	assert.Equal(t, models.Tags{"a", "b"}, view.Tags)
	assert.Equal(t, int64(9), view.RatingSum)
}

func TestNoteRepositorySearchWithoutFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	now := time.Now().UTC()
	rows := noteViewRows()
	addNoteView(rows, "n2", "Newer", now, 0, 0, 0)
	addNoteView(rows, "n1", "Older", now.Add(-time.Hour), 5, 4, 1)
	mock.ExpectQuery(`JOIN users u ON u\.id = n\.uploader_id ORDER BY n\.upload_date DESC, n\.id$`).
		WithArgs().
		WillReturnRows(rows)

	views, err := repo.Search(context.Background(), models.SearchQuery{Category: models.CategoryAll, Sort: models.SortRecent})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "n2", views[0].ID)
	assert.Equal(t, "n1", views[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositorySearchTextAndCategory(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	query := regexp.QuoteMeta("WHERE (n.title ILIKE $1 OR n.description ILIKE $1 OR n.subject ILIKE $1 OR n.tags ILIKE $1) AND n.category = $2 ORDER BY n.downloads DESC")
	mock.ExpectQuery(query).
		WithArgs(`%50\%\_off%`, "Math").
		WillReturnRows(noteViewRows())

	views, err := repo.Search(context.Background(), models.SearchQuery{Text: " 50%_off ", Category: "Math", Sort: models.SortPopular})
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositorySearchByRating(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY " + averageRatingExpr + " DESC, n.upload_date DESC, n.id")).
		WillReturnRows(noteViewRows())

	_, err := repo.Search(context.Background(), models.SearchQuery{Sort: models.SortRating})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryCategories(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT category FROM notes ORDER BY category")).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("Biology").AddRow("Math"))

	categories, err := repo.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Biology", "Math"}, categories)
}

func TestNoteRepositoryDeleteCascades(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ratings WHERE note_id = $1")).WithArgs("n1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM download_history WHERE note_id = $1")).WithArgs("n1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1")).WithArgs("n1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "n1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryDeleteMissingRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ratings")).WithArgs("n9").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM download_history")).WithArgs("n9").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1")).WithArgs("n9").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "n9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryDeleteFailureRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ratings")).WithArgs("n1").WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	require.Error(t, repo.Delete(context.Background(), "n1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
