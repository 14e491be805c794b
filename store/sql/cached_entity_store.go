package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const entityCacheKeyPrefix = "go-shelf::entity::v1"

// CachedEntityStore serves Get through a read-through cache and drops the
// cached row on every write to it.
type CachedEntityStore struct {
	base  *EntityStore
	cache repositorycache.CacheService
}

func NewCachedEntityStore(base *EntityStore, cacheService repositorycache.CacheService) (*CachedEntityStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base entity store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: entity cache service is required")
	}
	return &CachedEntityStore{base: base, cache: cacheService}, nil
}

// EntityCacheKey returns go-shelf::entity::v1::<table>::<id> with each segment
// URL-path escaped.
func EntityCacheKey(table string, id any) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", fmt.Errorf("sqlstore: cache key requires a table")
	}
	if id == nil {
		return "", fmt.Errorf("sqlstore: cache key requires an id")
	}
	idSegment := strings.TrimSpace(fmt.Sprint(id))
	if idSegment == "" {
		return "", fmt.Errorf("sqlstore: cache key requires an id")
	}
	return strings.Join([]string{
		entityCacheKeyPrefix,
		url.PathEscape(table),
		url.PathEscape(idSegment),
	}, "::"), nil
}

func (s *CachedEntityStore) Table() string {
	if s == nil {
		return ""
	}
	return s.base.Table()
}

func (s *CachedEntityStore) IDColumn() string {
	if s == nil {
		return ""
	}
	return s.base.IDColumn()
}

func (s *CachedEntityStore) Get(ctx context.Context, id any) (map[string]any, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached entity store is not configured")
	}
	cacheKey, err := EntityCacheKey(s.base.Table(), id)
	if err != nil {
		return nil, err
	}
	var fetchErr error
	row, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (map[string]any, error) {
		fetched, err := s.base.Get(ctx, id)
		if err != nil {
			fetchErr = err
			return nil, err
		}
		return copyValues(fetched), nil
	})
	if err != nil {
		// surface the store error unwrapped so ErrEntityNotFound stays matchable
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, err
	}
	return copyValues(row), nil
}

func (s *CachedEntityStore) List(ctx context.Context, opts ListOptions) ([]map[string]any, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached entity store is not configured")
	}
	return s.base.List(ctx, opts)
}

func (s *CachedEntityStore) Insert(ctx context.Context, values map[string]any) (any, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached entity store is not configured")
	}
	id, err := s.base.Insert(ctx, values)
	if err != nil {
		return nil, err
	}
	if err := s.invalidate(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}

func (s *CachedEntityStore) Update(ctx context.Context, id any, values map[string]any) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached entity store is not configured")
	}
	if err := s.base.Update(ctx, id, values); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

func (s *CachedEntityStore) Delete(ctx context.Context, id any) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached entity store is not configured")
	}
	if err := s.base.Delete(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

func (s *CachedEntityStore) invalidate(ctx context.Context, id any) error {
	cacheKey, err := EntityCacheKey(s.base.Table(), id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
