package assembly

import (
	"fmt"

	"github.com/goliatone/go-assembly/core"
	"github.com/goliatone/go-assembly/storage"
	sqlstore "github.com/goliatone/go-assembly/store/sql"
)

// StorageClasses returns a registry holding the built-in classes plus the
// filesystem class. When persistenceClient is set the SQL media store is
// registered too and its factory is returned.
func StorageClasses(persistenceClient any, opts ...sqlstore.FactoryOption) (*core.StorageClassRegistry, *sqlstore.StoreFactory, error) {
	registry := core.NewStorageClassRegistry()
	if err := storage.Register(registry); err != nil {
		return nil, nil, err
	}
	if persistenceClient == nil {
		return registry, nil, nil
	}
	factory := sqlstore.NewStoreFactory(opts...)
	if err := factory.Build(persistenceClient); err != nil {
		return nil, nil, err
	}
	if err := registry.Register(sqlstore.MediaStorageClassName, factory.StorageClass()); err != nil {
		return nil, nil, err
	}
	return registry, factory, nil
}

func SQLIndexStore(persistenceClient any) (core.IndexStore, error) {
	if persistenceClient == nil {
		return nil, fmt.Errorf("assembly: persistence client is required")
	}
	factory := sqlstore.NewStoreFactory()
	if err := factory.Build(persistenceClient); err != nil {
		return nil, err
	}
	return factory.IndexStore(), nil
}

// SQLOptions wires the SQL media store and index store from one client.
func SQLOptions(persistenceClient any, opts ...sqlstore.FactoryOption) ([]Option, error) {
	registry, factory, err := StorageClasses(persistenceClient, opts...)
	if err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("assembly: persistence client is required")
	}
	return []Option{
		core.WithStorageClasses(registry),
		core.WithIndexStore(factory.IndexStore()),
	}, nil
}
