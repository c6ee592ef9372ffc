package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/internal/dto"
	"github.com/noah-isme/sma-notes-api/internal/models"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
	"github.com/noah-isme/sma-notes-api/pkg/humanize"
	"github.com/noah-isme/sma-notes-api/pkg/markdown"
	"github.com/noah-isme/sma-notes-api/pkg/storage"
)

const defaultMaxFileSize int64 = 50 << 20

type noteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	FindByID(ctx context.Context, id string) (*models.Note, error)
	FindView(ctx context.Context, id string) (*models.NoteView, error)
	Categories(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore persists uploaded file content.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, suggestedName string) (storage.Object, error)
	Get(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
}

// NoteUpload is the file half of a note creation request.
type NoteUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// NoteServiceConfig holds catalog limits.
type NoteServiceConfig struct {
	MaxFileSize int64
}

// NoteService manages catalog entries and their blobs.
type NoteService struct {
	repo      noteRepository
	blobs     BlobStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    NoteServiceConfig
	reaper    blobRemover
	now       func() time.Time
}

// NewNoteService constructs a NoteService.
func NewNoteService(repo noteRepository, blobs BlobStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg NoteServiceConfig) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	return &NoteService{
		repo:      repo,
		blobs:     blobs,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Create stores the uploaded file and then records the note. A blob written
// before a failed insert is left in place and logged.
func (s *NoteService) Create(ctx context.Context, session *models.Session, req dto.CreateNoteRequest, upload NoteUpload) (*models.Note, error) {
	if !models.CanUpload(session) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login required to upload notes")
	}

	title := strings.TrimSpace(req.Title)
	category := strings.TrimSpace(req.Category)
	subject := strings.TrimSpace(req.Subject)
	if title == "" || category == "" || subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title, category and subject are required")
	}
	if category == models.CategoryAll {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category name is reserved")
	}
	if upload.Content == nil || strings.TrimSpace(upload.Filename) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.config.MaxFileSize {
		return nil, s.tooLarge()
	}

	obj, err := s.blobs.Put(ctx, io.LimitReader(upload.Content, s.config.MaxFileSize+1), upload.Filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store file")
	}
	if obj.Size == 0 || obj.Size > s.config.MaxFileSize {
		s.discardBlob(ctx, obj.Locator)
		if obj.Size == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
		}
		return nil, s.tooLarge()
	}

	note := &models.Note{
		ID:          uuid.NewString(),
		Title:       title,
		Category:    category,
		Subject:     subject,
		Description: strings.TrimSpace(req.Description),
		UploaderID:  session.UserID,
		UploadDate:  s.now().UTC(),
		Tags:        models.ParseTags(req.Tags),
		BlobLocator: obj.Locator,
		FileName:    storage.DisplayName(upload.Filename),
		FileSize:    obj.Size,
	}
	if err := s.repo.Create(ctx, note); err != nil {
		s.logger.Warn("note insert failed after blob write", zap.String("locator", obj.Locator), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save note")
	}

	invalidateSearchCache(ctx, s.cache)
	s.metrics.NoteUploaded()
	s.logger.Info("note uploaded",
		zap.String("note_id", note.ID),
		zap.String("uploader_id", note.UploaderID),
		zap.Int64("size", note.FileSize),
	)
	return note, nil
}

// Find returns the public view of a note.
func (s *NoteService) Find(ctx context.Context, id string) (*models.NoteView, error) {
	view, err := s.repo.FindView(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	decorate(view)
	return view, nil
}

// ListCategories returns "All" followed by the distinct note categories.
func (s *NoteService) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return append([]string{models.CategoryAll}, categories...), nil
}

// Delete removes a note together with its ratings and download history.
// Only the uploader or an admin may delete. Blob removal is best effort.
func (s *NoteService) Delete(ctx context.Context, session *models.Session, id string) error {
	if !session.Authenticated() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "login required to delete notes")
	}
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if !models.CanDeleteNote(session, note) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader or an admin can delete this note")
	}

	s.discardBlob(ctx, note.BlobLocator)

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}

	invalidateSearchCache(ctx, s.cache)
	s.metrics.NoteDeleted()
	s.logger.Info("note deleted", zap.String("note_id", id), zap.String("by", session.UserID))
	return nil
}

// UseReaper routes blob deletions through r instead of deleting inline.
func (s *NoteService) UseReaper(r blobRemover) {
	s.reaper = r
}

func (s *NoteService) discardBlob(ctx context.Context, locator string) {
	if locator == "" {
		return
	}
	if s.reaper != nil {
		s.reaper.Remove(ctx, locator)
		return
	}
	if err := s.blobs.Delete(ctx, locator); err != nil {
		s.logger.Warn("failed to delete blob", zap.String("locator", locator), zap.Error(err))
	}
}

func (s *NoteService) tooLarge() error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %s limit", humanize.FileSize(s.config.MaxFileSize)))
}

// decorate fills the derived presentation fields of a view.
func decorate(view *models.NoteView) {
	view.AvgRating = view.AverageRating()
	view.DescriptionHTML = markdown.Render(view.Description)
	view.FileSizeHuman = humanize.FileSize(view.FileSize)
	if view.Tags == nil {
		view.Tags = models.Tags{}
	}
}
