package assembly

import (
	"context"

	"github.com/goliatone/go-assembly/core"
)

type App = core.App
type Option = core.Option
type Settings = core.Settings
type Snapshot = core.Snapshot

type Module = core.Module
type InitFunc = core.InitFunc
type ModuleCatalog = core.ModuleCatalog

type Resource = core.Resource
type Datasource = core.Datasource
type Domain = core.Domain
type Schema = core.Schema
type ItemScope = core.ItemScope
type ResourceCatalog = core.ResourceCatalog
type FilterCatalog = core.FilterCatalog

type MediaObject = core.MediaObject
type MediaStorage = core.MediaStorage
type StorageClass = core.StorageClass
type StorageClassRegistry = core.StorageClassRegistry

type IndexStore = core.IndexStore
type IndexRequest = core.IndexRequest

type ConfigObject = core.ConfigObject
type ObjectCatalog = core.ObjectCatalog
type Override = core.Override
type MappingOverride = core.MappingOverride
type ObjectOverride = core.ObjectOverride

type UserContext = core.UserContext
type ErrorEnvelope = core.ErrorEnvelope

var (
	WithDefaults                = core.WithDefaults
	WithConfigObject            = core.WithConfigObject
	WithOverride                = core.WithOverride
	WithConfig                  = core.WithConfig
	WithAppAbsPath              = core.WithAppAbsPath
	WithLogger                  = core.WithLogger
	WithLoggerProvider          = core.WithLoggerProvider
	WithMetricsRecorder         = core.WithMetricsRecorder
	WithOptionsResolver         = core.WithOptionsResolver
	WithErrorMapper             = core.WithErrorMapper
	WithStorageClasses          = core.WithStorageClasses
	WithStorageProviderOverride = core.WithStorageProviderOverride
	WithMediaStorage            = core.WithMediaStorage
	WithModules                 = core.WithModules
	WithInstalledSet            = core.WithInstalledSet
	WithResourceCatalog         = core.WithResourceCatalog
	WithFilterCatalog           = core.WithFilterCatalog
	WithIndexStore              = core.WithIndexStore
	WithTaskEnqueuer            = core.WithTaskEnqueuer
	WithCommandRegistry         = core.WithCommandRegistry
)

func DefaultConfig() map[string]any {
	return core.DefaultConfig()
}

// Assemble builds an App from the given options.
func Assemble(ctx context.Context, opts ...Option) (*App, error) {
	return core.Assemble(ctx, opts...)
}
