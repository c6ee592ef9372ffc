package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-notes-api/internal/models"
)

// StatsRepository computes per-user activity aggregates.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// ActivityCounts aggregates uploads, downloads received, downloads made and
// ratings given for the user.
func (r *StatsRepository) ActivityCounts(ctx context.Context, userID string) (*models.ActivityCounts, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM notes WHERE uploader_id = $1) AS total_uploads,
	(SELECT COALESCE(SUM(downloads), 0) FROM notes WHERE uploader_id = $1) AS total_downloads_of_uploads,
	(SELECT COUNT(*) FROM download_history WHERE user_id = $1) AS personal_downloads,
	(SELECT COUNT(*) FROM ratings WHERE user_id = $1) AS ratings_given`
	var counts models.ActivityCounts
	if err := r.db.GetContext(ctx, &counts, query, userID); err != nil {
		return nil, fmt.Errorf("load activity counts: %w", err)
	}
	return &counts, nil
}
