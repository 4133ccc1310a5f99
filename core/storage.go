package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultStorageClassName = "core.ProxyMediaStorage"
	MemoryStorageClassName  = "core.MemoryMediaStorage"
)

// StorageClassRegistry is the table of storage providers that configuration
// can name through media_storage_provider. Entries are checked against
// StorageClass when selected, not when registered.
type StorageClassRegistry struct {
	mu      sync.RWMutex
	classes map[string]any
}

func NewStorageClassRegistry() *StorageClassRegistry {
	registry := &StorageClassRegistry{classes: map[string]any{}}
	registry.classes[DefaultStorageClassName] = ProxyStorageClass{}
	registry.classes[MemoryStorageClassName] = MemoryStorageClass{}
	return registry
}

func (r *StorageClassRegistry) Register(name string, class any) error {
	if r == nil {
		return fmt.Errorf("core: storage class registry is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("core: storage class name is required")
	}
	if class == nil {
		return fmt.Errorf("core: storage class %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[name] = class
	return nil
}

func (r *StorageClassRegistry) Lookup(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	class, ok := r.classes[strings.TrimSpace(name)]
	return class, ok
}

func (r *StorageClassRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.classes)
}

// SelectStorageClass resolves the storage class named by media_storage_provider
// when allowProvider is set. A provider that is not registered, or that does
// not implement StorageClass, is a fatal configuration error. Without a
// provider the proxy backend is returned.
func SelectStorageClass(cfg *Snapshot, registry *StorageClassRegistry, allowProvider bool) (StorageClass, error) {
	if !allowProvider {
		return ProxyStorageClass{}, nil
	}
	raw, ok := cfg.Get(KeyMediaStorageProvider)
	if !ok || raw == nil {
		return ProxyStorageClass{}, nil
	}
	switch provider := raw.(type) {
	case string:
		name := strings.TrimSpace(provider)
		if name == "" {
			return ProxyStorageClass{}, nil
		}
		entry, found := registry.Lookup(name)
		if !found {
			return nil, storageProviderError(fmt.Sprintf("Invalid setting %s. %s is not a registered storage class", KeyMediaStorageProvider, name))
		}
		class, valid := entry.(StorageClass)
		if !valid {
			return nil, storageProviderError(fmt.Sprintf("Invalid setting %s. %s must implement core.StorageClass", KeyMediaStorageProvider, name))
		}
		return class, nil
	case StorageClass:
		return provider, nil
	default:
		return ProxyStorageClass{}, nil
	}
}

type storageContextKey struct{}

// WithRequestStorage routes media operations made with ctx to storage when the
// App uses the proxy backend.
func WithRequestStorage(ctx context.Context, storage MediaStorage) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, storageContextKey{}, storage)
}

func RequestStorage(ctx context.Context) (MediaStorage, bool) {
	if ctx == nil {
		return nil, false
	}
	storage, ok := ctx.Value(storageContextKey{}).(MediaStorage)
	return storage, ok && storage != nil
}

// ProxyStorageClass builds a ProxyMediaStorage over an in-memory fallback.
type ProxyStorageClass struct {
	Fallback MediaStorage
}

func (c ProxyStorageClass) New(context.Context, *Snapshot) (MediaStorage, error) {
	return NewProxyMediaStorage(c.Fallback), nil
}

// ProxyMediaStorage defers each call to the request storage, then the
// backend routed for the resource, then the fallback.
type ProxyMediaStorage struct {
	mu       sync.RWMutex
	fallback MediaStorage
	routes   map[string]MediaStorage
}

func NewProxyMediaStorage(fallback MediaStorage) *ProxyMediaStorage {
	if fallback == nil {
		fallback = NewMemoryMediaStorage()
	}
	return &ProxyMediaStorage{fallback: fallback, routes: map[string]MediaStorage{}}
}

// Route sends operations on resource to storage.
func (p *ProxyMediaStorage) Route(resource string, storage MediaStorage) error {
	if p == nil {
		return fmt.Errorf("core: proxy media storage is nil")
	}
	if strings.TrimSpace(resource) == "" {
		return fmt.Errorf("core: resource is required")
	}
	if storage == nil {
		return fmt.Errorf("core: storage for %q is nil", resource)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[resource] = storage
	return nil
}

func (p *ProxyMediaStorage) Routes() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.routes)
}

func (p *ProxyMediaStorage) storageFor(ctx context.Context, resource string) MediaStorage {
	if storage, ok := RequestStorage(ctx); ok {
		return storage
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if storage, ok := p.routes[resource]; ok {
		return storage
	}
	return p.fallback
}

func (p *ProxyMediaStorage) Put(ctx context.Context, object MediaObject) (string, error) {
	return p.storageFor(ctx, object.Resource).Put(ctx, object)
}

func (p *ProxyMediaStorage) Get(ctx context.Context, id string, resource string) (MediaObject, error) {
	return p.storageFor(ctx, resource).Get(ctx, id, resource)
}

func (p *ProxyMediaStorage) Delete(ctx context.Context, id string, resource string) error {
	return p.storageFor(ctx, resource).Delete(ctx, id, resource)
}

func (p *ProxyMediaStorage) Exists(ctx context.Context, id string, resource string) (bool, error) {
	return p.storageFor(ctx, resource).Exists(ctx, id, resource)
}

type MemoryStorageClass struct{}

func (MemoryStorageClass) New(context.Context, *Snapshot) (MediaStorage, error) {
	return NewMemoryMediaStorage(), nil
}

type MemoryMediaStorage struct {
	mu      sync.RWMutex
	now     func() time.Time
	objects map[string]MediaObject
}

func NewMemoryMediaStorage() *MemoryMediaStorage {
	return &MemoryMediaStorage{now: time.Now, objects: map[string]MediaObject{}}
}

func (s *MemoryMediaStorage) Put(_ context.Context, object MediaObject) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: memory media storage is nil")
	}
	if strings.TrimSpace(object.ID) == "" {
		object.ID = uuid.NewString()
	}
	if object.CreatedAt.IsZero() {
		object.CreatedAt = s.now().UTC()
	}
	object.Data = append([]byte(nil), object.Data...)
	object.Metadata = copyAnyMap(object.Metadata)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[mediaKey(object.Resource, object.ID)] = object
	return object.ID, nil
}

func (s *MemoryMediaStorage) Get(_ context.Context, id string, resource string) (MediaObject, error) {
	if s == nil {
		return MediaObject{}, fmt.Errorf("core: memory media storage is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	object, ok := s.objects[mediaKey(resource, id)]
	if !ok {
		return MediaObject{}, NewMediaNotFoundError(resource, id)
	}
	object.Data = append([]byte(nil), object.Data...)
	object.Metadata = copyAnyMap(object.Metadata)
	return object, nil
}

func (s *MemoryMediaStorage) Delete(_ context.Context, id string, resource string) error {
	if s == nil {
		return fmt.Errorf("core: memory media storage is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := mediaKey(resource, id)
	if _, ok := s.objects[key]; !ok {
		return NewMediaNotFoundError(resource, id)
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryMediaStorage) Exists(_ context.Context, id string, resource string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: memory media storage is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[mediaKey(resource, id)]
	return ok, nil
}

// IDs lists stored ids for resource, sorted.
func (s *MemoryMediaStorage) IDs(resource string) []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []string{}
	for _, object := range s.objects {
		if object.Resource == resource {
			ids = append(ids, object.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func mediaKey(resource string, id string) string {
	return resource + "/" + id
}
