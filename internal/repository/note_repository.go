package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-notes-api/internal/models"
)

const noteColumns = `n.id, n.title, n.category, n.subject, n.description, n.uploader_id, n.upload_date,
	n.downloads, n.tags, n.blob_locator, n.file_name, n.file_size, n.rating_sum, n.rating_count`

const noteViewSelect = `SELECT ` + noteColumns + `, u.username AS uploader_name
FROM notes n
JOIN users u ON u.id = n.uploader_id`

const averageRatingExpr = `CASE WHEN n.rating_count > 0 THEN n.rating_sum::float8 / n.rating_count ELSE 0 END`

// NoteRepository persists catalog entries.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a note record. Aggregates and the download counter start at zero.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	const query = `INSERT INTO notes (id, title, category, subject, description, uploader_id, upload_date, downloads, tags, blob_locator, file_name, file_size, rating_sum, rating_count)
VALUES (:id, :title, :category, :subject, :description, :uploader_id, :upload_date, 0, :tags, :blob_locator, :file_name, :file_size, 0, 0)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// FindByID returns the raw note record including its blob locator.
func (r *NoteRepository) FindByID(ctx context.Context, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes n WHERE n.id = $1`
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find note: %w", err)
	}
	return &note, nil
}

// FindView returns the note joined with its uploader's username.
func (r *NoteRepository) FindView(ctx context.Context, id string) (*models.NoteView, error) {
	query := noteViewSelect + ` WHERE n.id = $1`
	var view models.NoteView
	if err := r.db.GetContext(ctx, &view, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find note view: %w", err)
	}
	return &view, nil
}

// Search filters by free text and category and orders by the requested key.
// Text matches case-insensitively against title, description, subject or the
// serialized tag list. The sort key must already be validated.
func (r *NoteRepository) Search(ctx context.Context, q models.SearchQuery) ([]models.NoteView, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if text := strings.TrimSpace(q.Text); text != "" {
		args = append(args, "%"+escapeLike(text)+"%")
		p := len(args)
		conditions = append(conditions, fmt.Sprintf("(n.title ILIKE $%d OR n.description ILIKE $%d OR n.subject ILIKE $%d OR n.tags ILIKE $%d)", p, p, p, p))
	}
	if q.FiltersCategory() {
		args = append(args, strings.TrimSpace(q.Category))
		conditions = append(conditions, fmt.Sprintf("n.category = $%d", len(args)))
	}

	query := noteViewSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + orderClause(q.Sort)

	var views []models.NoteView
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return views, nil
}

func orderClause(key models.SortKey) string {
	switch key {
	case models.SortPopular:
		return "n.downloads DESC, n.upload_date DESC, n.id"
	case models.SortRating:
		return averageRatingExpr + " DESC, n.upload_date DESC, n.id"
	default:
		return "n.upload_date DESC, n.id"
	}
}

// ListByUploader returns the user's notes, newest first.
func (r *NoteRepository) ListByUploader(ctx context.Context, uploaderID string) ([]models.NoteView, error) {
	query := noteViewSelect + ` WHERE n.uploader_id = $1 ORDER BY n.upload_date DESC, n.id`
	var views []models.NoteView
	if err := r.db.SelectContext(ctx, &views, query, uploaderID); err != nil {
		return nil, fmt.Errorf("list notes by uploader: %w", err)
	}
	return views, nil
}

// Categories lists the distinct categories in ascending order.
func (r *NoteRepository) Categories(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT category FROM notes ORDER BY category`
	var categories []string
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Delete removes the note with its ratings and download events in one
// transaction. sql.ErrNoRows is returned when the note does not exist.
func (r *NoteRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete note: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM ratings WHERE note_id = $1`, id); err != nil {
		return fmt.Errorf("delete note ratings: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM download_history WHERE note_id = $1`, id); err != nil {
		return fmt.Errorf("delete note downloads: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete note: %w", err)
	}
	return nil
}
