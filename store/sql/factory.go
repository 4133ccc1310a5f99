package sqlstore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-assembly/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

// MediaStorageClassName is the storage provider name under which the SQL
// media store is registered.
const MediaStorageClassName = "sqlstore.MediaStore"

type StoreFactory struct {
	db         *bun.DB
	mediaCache repositorycache.CacheService

	mediaStore  *MediaStore
	cachedMedia *CachedMediaStore
	indexStore  *IndexStore
}

type FactoryOption func(*StoreFactory)

// WithMediaCache puts a read-through cache in front of the media store
// returned by StorageClass.
func WithMediaCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *StoreFactory) {
		f.mediaCache = cacheService
	}
}

func NewStoreFactory(opts ...FactoryOption) *StoreFactory {
	factory := &StoreFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewStoreFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*StoreFactory, error) {
	factory := NewStoreFactory(opts...)
	if err := factory.Build(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewStoreFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*StoreFactory, error) {
	factory := NewStoreFactory(opts...)
	if err := factory.Build(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// Build accepts a *bun.DB or anything exposing DB() *bun.DB.
func (f *StoreFactory) Build(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: store factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.mediaStore != nil && f.indexStore != nil {
		return nil
	}
	mediaStore, err := NewMediaStore(f.db)
	if err != nil {
		return err
	}
	indexStore, err := NewIndexStore(f.db)
	if err != nil {
		return err
	}
	if f.mediaCache != nil {
		cached, err := NewCachedMediaStore(mediaStore, f.mediaCache)
		if err != nil {
			return err
		}
		f.cachedMedia = cached
	}
	f.mediaStore = mediaStore
	f.indexStore = indexStore
	return nil
}

func (f *StoreFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *StoreFactory) MediaStore() *MediaStore {
	if f == nil {
		return nil
	}
	return f.mediaStore
}

// CachedMediaStore is nil unless the factory was given a media cache.
func (f *StoreFactory) CachedMediaStore() *CachedMediaStore {
	if f == nil {
		return nil
	}
	return f.cachedMedia
}

func (f *StoreFactory) IndexStore() *IndexStore {
	if f == nil {
		return nil
	}
	return f.indexStore
}

// StorageClass exposes the media store as a selectable storage class.
func (f *StoreFactory) StorageClass() core.StorageClass {
	return core.StorageClassFunc(func(context.Context, *core.Snapshot) (core.MediaStorage, error) {
		if f == nil || f.mediaStore == nil {
			return nil, fmt.Errorf("sqlstore: store factory is not built")
		}
		if f.cachedMedia != nil {
			return f.cachedMedia, nil
		}
		return f.mediaStore, nil
	})
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
