package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-assembly/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubMediaStore struct {
	mu          sync.Mutex
	objects     map[string]core.MediaObject
	getCalls    int
	deleteCalls int
}

func newStubMediaStore() *stubMediaStore {
	return &stubMediaStore{objects: map[string]core.MediaObject{}}
}

func (s *stubMediaStore) Put(_ context.Context, object core.MediaObject) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[object.Resource+"/"+object.ID] = cloneMediaObject(object)
	return object.ID, nil
}

func (s *stubMediaStore) Get(_ context.Context, id string, resource string) (core.MediaObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	object, ok := s.objects[resource+"/"+id]
	if !ok {
		return core.MediaObject{}, core.NewMediaNotFoundError(resource, id)
	}
	return cloneMediaObject(object), nil
}

func (s *stubMediaStore) Delete(_ context.Context, id string, resource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	delete(s.objects, resource+"/"+id)
	return nil
}

func (s *stubMediaStore) Exists(_ context.Context, id string, resource string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[resource+"/"+id]
	return ok, nil
}

func TestCachedMediaStore_Get_MissFetchThenHit(t *testing.T) {
	ctx := context.Background()
	base := newStubMediaStore()
	_, _ = base.Put(ctx, core.MediaObject{ID: "m1", Resource: "archive", Filename: "a.png", Data: []byte("png")})

	store, err := NewCachedMediaStore(base, newTestMediaCacheService(t))
	if err != nil {
		t.Fatalf("new cached media store: %v", err)
	}

	if _, err := store.Get(ctx, "m1", "archive"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	object, err := store.Get(ctx, "m1", "archive")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be a cache hit, base get calls=%d", base.getCalls)
	}
	if object.Filename != "a.png" {
		t.Fatalf("expected cached filename a.png, got %q", object.Filename)
	}
}

func TestCachedMediaStore_PutInvalidatesCachedRead(t *testing.T) {
	ctx := context.Background()
	base := newStubMediaStore()
	_, _ = base.Put(ctx, core.MediaObject{ID: "m1", Resource: "archive", Filename: "old.png"})

	store, err := NewCachedMediaStore(base, newTestMediaCacheService(t))
	if err != nil {
		t.Fatalf("new cached media store: %v", err)
	}
	if _, err := store.Get(ctx, "m1", "archive"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := store.Put(ctx, core.MediaObject{ID: "m1", Resource: "archive", Filename: "new.png"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	object, err := store.Get(ctx, "m1", "archive")
	if err != nil {
		t.Fatalf("get after put: %v", err)
	}
	if object.Filename != "new.png" {
		t.Fatalf("expected refreshed filename, got %q", object.Filename)
	}
	if base.getCalls != 2 {
		t.Fatalf("expected invalidation to force a fetch, base get calls=%d", base.getCalls)
	}
}

func TestCachedMediaStore_DeleteInvalidatesAndReportsNotFound(t *testing.T) {
	ctx := context.Background()
	base := newStubMediaStore()
	_, _ = base.Put(ctx, core.MediaObject{ID: "m1", Resource: "archive"})

	store, err := NewCachedMediaStore(base, newTestMediaCacheService(t))
	if err != nil {
		t.Fatalf("new cached media store: %v", err)
	}
	if _, err := store.Get(ctx, "m1", "archive"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if err := store.Delete(ctx, "m1", "archive"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "m1", "archive"); !errors.Is(err, core.ErrMediaNotFound) {
		t.Fatalf("expected media not found after delete, got %v", err)
	}
}

func TestMediaCacheKey(t *testing.T) {
	key, err := MediaCacheKey("archive/raw", "m 1")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if want := "go-assembly::media::v1::archive%2Fraw::m%201"; key != want {
		t.Fatalf("expected %q, got %q", want, key)
	}
	if _, err := MediaCacheKey("", "m1"); err == nil {
		t.Fatalf("expected empty resource to be rejected")
	}
}

func TestNewCachedMediaStore_RequiresDependencies(t *testing.T) {
	if _, err := NewCachedMediaStore(nil, newTestMediaCacheService(t)); err == nil {
		t.Fatalf("expected nil base store to fail")
	}
	if _, err := NewCachedMediaStore(newStubMediaStore(), nil); err == nil {
		t.Fatalf("expected nil cache service to fail")
	}
}

func newTestMediaCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}
