package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-notes-api/internal/models"
)

// RatingRepository maintains ratings and the denormalized aggregates on notes.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs the repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert stores the user's rating for a note and recomputes the note's
// rating_sum and rating_count from every rating row, all in one transaction.
// The note row is locked first so concurrent raters serialize; a missing note
// returns sql.ErrNoRows.
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.Rating) (summary *models.RatingSummary, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin rating transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string
	if err = tx.GetContext(ctx, &lockedID, `SELECT id FROM notes WHERE id = $1 FOR UPDATE`, rating.NoteID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock note for rating: %w", err)
	}

	const upsertQuery = `INSERT INTO ratings (id, note_id, user_id, rating, review, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (note_id, user_id) DO UPDATE SET rating = EXCLUDED.rating, review = EXCLUDED.review, created_at = EXCLUDED.created_at`
	if _, err = tx.ExecContext(ctx, upsertQuery, rating.ID, rating.NoteID, rating.UserID, rating.Rating, rating.Review, rating.CreatedAt); err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}

	const recomputeQuery = `UPDATE notes SET rating_sum = agg.total, rating_count = agg.cnt
FROM (SELECT COALESCE(SUM(rating), 0) AS total, COUNT(*) AS cnt FROM ratings WHERE note_id = $1) agg
WHERE notes.id = $1
RETURNING notes.rating_sum, notes.rating_count`
	var agg struct {
		Sum   int64 `db:"rating_sum"`
		Count int64 `db:"rating_count"`
	}
	if err = tx.GetContext(ctx, &agg, recomputeQuery, rating.NoteID); err != nil {
		return nil, fmt.Errorf("recompute note rating: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rating: %w", err)
	}
	return &models.RatingSummary{
		NoteID:      rating.NoteID,
		RatingSum:   agg.Sum,
		RatingCount: agg.Count,
		AvgRating:   models.RoundedAverage(agg.Sum, agg.Count),
	}, nil
}

// ListForNote returns a note's ratings with reviewer usernames, newest first.
func (r *RatingRepository) ListForNote(ctx context.Context, noteID string) ([]models.RatingView, error) {
	const query = `SELECT r.id, r.note_id, r.user_id, r.rating, r.review, r.created_at, u.username
FROM ratings r
JOIN users u ON u.id = r.user_id
WHERE r.note_id = $1
ORDER BY r.created_at DESC, r.id`
	var ratings []models.RatingView
	if err := r.db.SelectContext(ctx, &ratings, query, noteID); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}
