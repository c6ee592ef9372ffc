package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/internal/models"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
)

type profileUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type activityReader interface {
	ActivityCounts(ctx context.Context, userID string) (*models.ActivityCounts, error)
}

type uploaderNotesReader interface {
	ListByUploader(ctx context.Context, uploaderID string) ([]models.NoteView, error)
}

// ProfileService reports per-user statistics and uploads.
type ProfileService struct {
	users    profileUserReader
	activity activityReader
	notes    uploaderNotesReader
	logger   *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(users profileUserReader, activity activityReader, notes uploaderNotesReader, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, activity: activity, notes: notes, logger: logger}
}

// Stats returns the caller's account details and activity totals.
func (s *ProfileService) Stats(ctx context.Context, session *models.Session) (*models.UserStats, error) {
	if !session.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login required to view statistics")
	}
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	counts, err := s.activity.ActivityCounts(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statistics")
	}
	return &models.UserStats{
		Username:                user.Username,
		Email:                   user.Email,
		Role:                    user.Role,
		MemberSince:             models.MemberSinceDate(user.CreatedAt),
		TotalUploads:            counts.TotalUploads,
		TotalDownloadsOfUploads: counts.TotalDownloadsOfUploads,
		PersonalDownloads:       counts.PersonalDownloads,
		RatingsGiven:            counts.RatingsGiven,
	}, nil
}

// MyNotes lists the caller's uploads, newest first.
func (s *ProfileService) MyNotes(ctx context.Context, session *models.Session) ([]models.NoteView, error) {
	if !session.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login required to list your notes")
	}
	views, err := s.notes.ListByUploader(ctx, session.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	if views == nil {
		views = []models.NoteView{}
	}
	for i := range views {
		decorate(&views[i])
	}
	return views, nil
}
