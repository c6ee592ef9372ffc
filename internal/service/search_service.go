package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/internal/models"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
)

const (
	searchCachePrefix  = "notes:search:"
	searchCachePattern = searchCachePrefix + "*"

	// Kept outside searchCachePattern so invalidation never resets it.
	searchGenerationKey = "notes:search-generation"
)

type noteSearcher interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.NoteView, error)
}

// SearchService answers catalog queries, caching result sets when enabled.
type SearchService struct {
	repo   noteSearcher
	cache  *CacheService
	logger *zap.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(repo noteSearcher, cache *CacheService, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{repo: repo, cache: cache, logger: logger}
}

// ParseQuery normalises raw browse parameters into a SearchQuery.
func ParseQuery(text, category, sort string) (models.SearchQuery, error) {
	key, err := models.ParseSortKey(sort)
	if err != nil {
		return models.SearchQuery{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "sort must be recent, popular or rating")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = models.CategoryAll
	}
	return models.SearchQuery{Text: strings.TrimSpace(text), Category: category, Sort: key}, nil
}

// Search returns every note matching q. The full result set is returned.
func (s *SearchService) Search(ctx context.Context, q models.SearchQuery) ([]models.NoteView, error) {
	q, err := ParseQuery(q.Text, q.Category, string(q.Sort))
	if err != nil {
		return nil, err
	}

	gen, cacheable := s.cache.Generation(ctx, searchGenerationKey)
	key := searchCacheKey(q, gen)
	var cached []models.NoteView
	if cacheable && s.cache.Get(ctx, key, &cached) {
		s.logger.Debug("search served from cache", zap.String("key", key), zap.Int("results", len(cached)))
		return cached, nil
	}

	views, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search notes")
	}
	if views == nil {
		views = []models.NoteView{}
	}
	for i := range views {
		decorate(&views[i])
	}

	// A write that lands during the read has advanced the generation, so
	// this entry is stored under a key no later search will look up.
	if cacheable {
		s.cache.Set(ctx, key, views, 0)
	}
	return views, nil
}

func searchCacheKey(q models.SearchQuery, gen int64) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{strings.ToLower(q.Text), q.Category, string(q.Sort)}, "\x00")))
	return searchCachePrefix + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:16])
}

// invalidateSearchCache retires every cached search result after a catalog
// or ledger write.
func invalidateSearchCache(ctx context.Context, cache *CacheService) {
	cache.Advance(ctx, searchGenerationKey)
	cache.Invalidate(ctx, searchCachePattern)
}
