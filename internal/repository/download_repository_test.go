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

const incrementDownloadsQuery = "UPDATE notes n SET downloads = n.downloads + 1 WHERE n.id = $1 RETURNING"

func noteRow(id string, downloads int64) *sqlmock.Rows {
	return sqlmock.NewRows(noteRowColumns).
		AddRow(id, "T", "Math", "Calc", "", "u1", time.Now().UTC(), downloads, `[]`, "blob-"+id, "t.pdf", int64(10), int64(0), int64(0))
}

func TestDownloadRepositoryRecord(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDownloadRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(incrementDownloadsQuery)).WithArgs("n1").WillReturnRows(noteRow("n1", 4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO download_history (id, note_id, user_id, download_date)")).
		WithArgs("d1", "n1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	note, err := repo.Record(context.Background(), &models.DownloadEvent{ID: "d1", NoteID: "n1", UserID: "u2", DownloadDate: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, int64(4), note.Downloads)
	assert.Equal(t, "blob-n1", note.BlobLocator)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDownloadRepositoryRecordMissingNote(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDownloadRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(incrementDownloadsQuery)).WithArgs("gone").WillReturnRows(sqlmock.NewRows(noteRowColumns))
	mock.ExpectRollback()

	_, err := repo.Record(context.Background(), &models.DownloadEvent{ID: "d1", NoteID: "gone", UserID: "u2"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDownloadRepositoryRecordRollsBackWhenEventFails(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDownloadRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(incrementDownloadsQuery)).WithArgs("n1").WillReturnRows(noteRow("n1", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO download_history")).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := repo.Record(context.Background(), &models.DownloadEvent{ID: "d1", NoteID: "n1", UserID: "u2"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryActivityCounts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStatsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AS total_uploads")).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"total_uploads", "total_downloads_of_uploads", "personal_downloads", "ratings_given"}).
			AddRow(3, 12, 5, 2))

	counts, err := repo.ActivityCounts(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.TotalUploads)
	assert.Equal(t, int64(12), counts.TotalDownloadsOfUploads)
	assert.Equal(t, int64(5), counts.PersonalDownloads)
	assert.Equal(t, int64(2), counts.RatingsGiven)
}
