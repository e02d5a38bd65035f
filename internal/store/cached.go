package store

import (
	"context"

	"github.com/quantrail/merchantiq/internal/models"
)

// QuoteCache is the cache surface CachedRepository uses. Implemented by
// the Redis quote cache.
type QuoteCache interface {
	Get(ctx context.Context, asin, marketplace string) (models.Quote, bool)
	Set(ctx context.Context, quote models.Quote)
	Invalidate(ctx context.Context, asin, marketplace string)
}

// CachedRepository decorates a Repository with a latest-quote cache.
// Series reads always go to the database; only the latest pointer is hot
// enough to cache.
type CachedRepository struct {
	*Repository
	cache QuoteCache
}

// NewCachedRepository wraps a repository with a quote cache.
func NewCachedRepository(repo *Repository, cache QuoteCache) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: cache}
}

// GetLatest serves from the cache when possible and populates it on a miss.
func (r *CachedRepository) GetLatest(ctx context.Context, asin, marketplace string) (models.Quote, error) {
	if q, ok := r.cache.Get(ctx, asin, marketplace); ok {
		return q, nil
	}

	q, err := r.Repository.GetLatest(ctx, asin, marketplace)
	if err != nil {
		return models.Quote{}, err
	}
	r.cache.Set(ctx, q)
	return q, nil
}

// Append writes through to the database and invalidates the cached pointer
// so the next read observes the new quote.
func (r *CachedRepository) Append(ctx context.Context, quote models.Quote) error {
	if err := r.Repository.Append(ctx, quote); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, quote.ASIN, quote.Marketplace)
	return nil
}
