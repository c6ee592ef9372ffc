package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/internal/models"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
	"github.com/noah-isme/sma-notes-api/pkg/storage"
)

type downloadRepository interface {
	Record(ctx context.Context, event *models.DownloadEvent) (*models.Note, error)
}

type fileTokenSigner interface {
	Generate(noteID, locator string) (string, time.Time, error)
	Parse(token string) (storage.FileClaims, error)
}

// DownloadService counts downloads and hands out short-lived file links.
type DownloadService struct {
	downloads downloadRepository
	notes     noteFinder
	blobs     BlobStore
	signer    fileTokenSigner
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	apiPrefix string
	now       func() time.Time
}

// NewDownloadService constructs a DownloadService. apiPrefix is prepended to
// the file URLs it issues.
func NewDownloadService(downloads downloadRepository, notes noteFinder, blobs BlobStore, signer fileTokenSigner, cache *CacheService, metrics *MetricsService, logger *zap.Logger, apiPrefix string) *DownloadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadService{
		downloads: downloads,
		notes:     notes,
		blobs:     blobs,
		signer:    signer,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
		now:       time.Now,
	}
}

// Download increments the note's counter, appends a download event and
// returns a ticket for fetching the file.
func (s *DownloadService) Download(ctx context.Context, session *models.Session, noteID string) (*models.DownloadTicket, error) {
	if !models.CanDownload(session) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login required to download notes")
	}

	note, err := s.downloads.Record(ctx, &models.DownloadEvent{
		ID:           uuid.NewString(),
		NoteID:       noteID,
		UserID:       session.UserID,
		DownloadDate: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record download")
	}

	token, expiresAt, err := s.signer.Generate(note.ID, note.BlobLocator)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	invalidateSearchCache(ctx, s.cache)
	s.metrics.NoteDownloaded()
	s.logger.Info("note downloaded", zap.String("note_id", note.ID), zap.String("user_id", session.UserID), zap.Int64("downloads", note.Downloads))

	return &models.DownloadTicket{
		NoteID:    note.ID,
		FileName:  note.FileName,
		FileSize:  note.FileSize,
		Downloads: note.Downloads,
		Token:     token,
		URL:       s.apiPrefix + "/notes/" + url.PathEscape(note.ID) + "/file?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt,
		Locator:   note.BlobLocator,
	}, nil
}

// Open validates a file token for the note and opens the blob. It does not
// count as a download. The caller closes the reader.
func (s *DownloadService) Open(ctx context.Context, noteID, token string) (io.ReadCloser, *models.Note, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download link has expired")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	if claims.NoteID != noteID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}

	note, err := s.notes.FindByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if note.BlobLocator != claims.Locator {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}

	rc, err := s.blobs.Get(ctx, note.BlobLocator)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open file")
	}
	return rc, note, nil
}
