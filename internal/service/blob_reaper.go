package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/pkg/jobs"
)

// blobRemover removes stored files without making the caller wait on storage.
type blobRemover interface {
	Remove(ctx context.Context, locator string)
}

// BlobReaper deletes blobs on a background worker pool with retries.
type BlobReaper struct {
	queue  *jobs.Queue[string]
	blobs  BlobStore
	logger *zap.Logger
}

// NewBlobReaper builds a reaper over blobs. Call Start before use.
func NewBlobReaper(blobs BlobStore, logger *zap.Logger, cfg jobs.Config) *BlobReaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	r := &BlobReaper{blobs: blobs, logger: logger}
	r.queue = jobs.New("blob-reaper", r.delete, cfg)
	return r
}

// Start launches the workers.
func (r *BlobReaper) Start(ctx context.Context) { r.queue.Start(ctx) }

// Stop drains queued deletions.
func (r *BlobReaper) Stop() { r.queue.Stop() }

// Remove queues locator for deletion. When the queue cannot accept it the
// blob is deleted inline.
func (r *BlobReaper) Remove(ctx context.Context, locator string) {
	if locator == "" {
		return
	}
	if err := r.queue.Submit(locator); err != nil {
		r.logger.Debug("blob reaper unavailable, deleting inline", zap.String("locator", locator), zap.Error(err))
		if err := r.delete(ctx, locator); err != nil {
			r.logger.Warn("failed to delete blob", zap.String("locator", locator), zap.Error(err))
		}
	}
}

func (r *BlobReaper) delete(ctx context.Context, locator string) error {
	return r.blobs.Delete(ctx, locator)
}
