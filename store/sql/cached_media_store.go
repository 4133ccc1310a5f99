package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-assembly/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const mediaCacheKeyPrefix = "go-assembly::media::v1"

// CachedMediaStore serves reads from a cache and invalidates on writes.
type CachedMediaStore struct {
	base  core.MediaStorage
	cache repositorycache.CacheService
}

func NewCachedMediaStore(base core.MediaStorage, cacheService repositorycache.CacheService) (*CachedMediaStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base media store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: media cache service is required")
	}
	return &CachedMediaStore{base: base, cache: cacheService}, nil
}

// MediaCacheKey returns go-assembly::media::v1::<resource>::<id> with each
// segment URL-path escaped.
func MediaCacheKey(resource, id string) (string, error) {
	resource = strings.TrimSpace(resource)
	id = strings.TrimSpace(id)
	if resource == "" || id == "" {
		return "", fmt.Errorf("sqlstore: media cache key requires resource and id")
	}
	return strings.Join([]string{mediaCacheKeyPrefix, url.PathEscape(resource), url.PathEscape(id)}, "::"), nil
}

func (s *CachedMediaStore) Put(ctx context.Context, object core.MediaObject) (string, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached media store is not configured")
	}
	id, err := s.base.Put(ctx, object)
	if err != nil {
		return "", err
	}
	if err := s.invalidate(ctx, object.Resource, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *CachedMediaStore) Get(ctx context.Context, id string, resource string) (core.MediaObject, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.MediaObject{}, fmt.Errorf("sqlstore: cached media store is not configured")
	}
	cacheKey, err := MediaCacheKey(resource, id)
	if err != nil {
		return core.MediaObject{}, err
	}
	object, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.MediaObject, error) {
		return s.base.Get(ctx, id, resource)
	})
	if err != nil {
		return core.MediaObject{}, err
	}
	return cloneMediaObject(object), nil
}

func (s *CachedMediaStore) Delete(ctx context.Context, id string, resource string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached media store is not configured")
	}
	if err := s.base.Delete(ctx, id, resource); err != nil {
		return err
	}
	return s.invalidate(ctx, resource, id)
}

func (s *CachedMediaStore) Exists(ctx context.Context, id string, resource string) (bool, error) {
	if s == nil || s.base == nil {
		return false, fmt.Errorf("sqlstore: cached media store is not configured")
	}
	return s.base.Exists(ctx, id, resource)
}

func (s *CachedMediaStore) invalidate(ctx context.Context, resource, id string) error {
	cacheKey, err := MediaCacheKey(resource, id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneMediaObject(object core.MediaObject) core.MediaObject {
	cloned := object
	cloned.Data = append([]byte(nil), object.Data...)
	cloned.Metadata = copyAnyMap(object.Metadata)
	return cloned
}
