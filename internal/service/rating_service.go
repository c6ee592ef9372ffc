package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/internal/dto"
	"github.com/noah-isme/sma-notes-api/internal/models"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
)

type ratingRepository interface {
	Upsert(ctx context.Context, rating *models.Rating) (*models.RatingSummary, error)
	ListForNote(ctx context.Context, noteID string) ([]models.RatingView, error)
}

type noteFinder interface {
	FindByID(ctx context.Context, id string) (*models.Note, error)
}

// RatingService records ratings and keeps note aggregates consistent.
type RatingService struct {
	ratings   ratingRepository
	notes     noteFinder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRatingService constructs a RatingService.
func NewRatingService(ratings ratingRepository, notes noteFinder, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RatingService{ratings: ratings, notes: notes, cache: cache, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Rate stores or replaces the caller's rating and returns the recomputed
// aggregate of the note.
func (s *RatingService) Rate(ctx context.Context, session *models.Session, noteID string, req dto.RateNoteRequest) (*models.RatingSummary, error) {
	if !models.CanRate(session) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login required to rate notes")
	}
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rating must be between 1 and 5")
	}
	req.Review = strings.TrimSpace(req.Review)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rating payload")
	}

	summary, err := s.ratings.Upsert(ctx, &models.Rating{
		ID:        uuid.NewString(),
		NoteID:    noteID,
		UserID:    session.UserID,
		Rating:    req.Rating,
		Review:    req.Review,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rating")
	}

	invalidateSearchCache(ctx, s.cache)
	s.metrics.NoteRated()
	s.logger.Info("note rated",
		zap.String("note_id", noteID),
		zap.String("user_id", session.UserID),
		zap.Int("rating", req.Rating),
	)
	return summary, nil
}

// ListForNote returns the reviews of an existing note, newest first.
func (s *RatingService) ListForNote(ctx context.Context, noteID string) ([]models.RatingView, error) {
	if _, err := s.notes.FindByID(ctx, noteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	ratings, err := s.ratings.ListForNote(ctx, noteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
	}
	if ratings == nil {
		ratings = []models.RatingView{}
	}
	return ratings, nil
}
