package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-notes-api/internal/models"
)

// DownloadRepository appends download events and maintains the note counter.
type DownloadRepository struct {
	db *sqlx.DB
}

// NewDownloadRepository constructs the repository.
func NewDownloadRepository(db *sqlx.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Record increments the note's download counter and appends the event in one
// transaction, returning the updated note. sql.ErrNoRows means the note does
// not exist and nothing was written.
func (r *DownloadRepository) Record(ctx context.Context, event *models.DownloadEvent) (note *models.Note, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin download transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const incrementQuery = `UPDATE notes n SET downloads = n.downloads + 1 WHERE n.id = $1 RETURNING ` + noteColumns
	var updated models.Note
	if err = tx.GetContext(ctx, &updated, incrementQuery, event.NoteID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("increment downloads: %w", err)
	}

	const insertQuery = `INSERT INTO download_history (id, note_id, user_id, download_date) VALUES ($1, $2, $3, $4)`
	if _, err = tx.ExecContext(ctx, insertQuery, event.ID, event.NoteID, event.UserID, event.DownloadDate); err != nil {
		return nil, fmt.Errorf("insert download event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit download: %w", err)
	}
	return &updated, nil
}
