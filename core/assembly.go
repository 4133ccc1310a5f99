package core

import (
	"context"
	"time"
)

type assemblyBuilder struct {
	defaults             map[string]any
	configObject         ConfigObject
	override             Override
	absPath              string
	logger               Logger
	loggerProvider       LoggerProvider
	metricsRecorder      MetricsRecorder
	optionsResolver      OptionsResolver
	errorMapper          ErrorMapper
	storageClasses       *StorageClassRegistry
	allowStorageProvider bool
	mediaStorage         MediaStorage
	modules              *ModuleCatalog
	installed            *InstalledSet
	resourceCatalog      *ResourceCatalog
	filters              *FilterCatalog
	indexStore           IndexStore
	tasks                TaskEnqueuer
	commands             CommandRegistry
}

type Option func(*assemblyBuilder)

// WithDefaults replaces the base defaults layer.
func WithDefaults(defaults map[string]any) Option {
	return func(b *assemblyBuilder) {
		if defaults != nil {
			b.defaults = copyAnyMap(defaults)
		}
	}
}

func WithConfigObject(object ConfigObject) Option {
	return func(b *assemblyBuilder) {
		b.configObject = object
	}
}

func WithOverride(override Override) Option {
	return func(b *assemblyBuilder) {
		b.override = override
	}
}

// WithConfig is shorthand for a mapping override.
func WithConfig(values map[string]any) Option {
	return WithOverride(MappingOverride(values))
}

func WithAppAbsPath(path string) Option {
	return func(b *assemblyBuilder) {
		b.absPath = path
	}
}

func WithLogger(logger Logger) Option {
	return func(b *assemblyBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *assemblyBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *assemblyBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *assemblyBuilder) {
		b.optionsResolver = resolver
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *assemblyBuilder) {
		b.errorMapper = mapper
	}
}

func WithStorageClasses(registry *StorageClassRegistry) Option {
	return func(b *assemblyBuilder) {
		b.storageClasses = registry
	}
}

// WithStorageProviderOverride controls whether media_storage_provider is read.
func WithStorageProviderOverride(allow bool) Option {
	return func(b *assemblyBuilder) {
		b.allowStorageProvider = allow
	}
}

// WithMediaStorage uses storage directly and skips storage class selection.
func WithMediaStorage(storage MediaStorage) Option {
	return func(b *assemblyBuilder) {
		b.mediaStorage = storage
	}
}

func WithModules(catalog *ModuleCatalog) Option {
	return func(b *assemblyBuilder) {
		b.modules = catalog
	}
}

func WithInstalledSet(set *InstalledSet) Option {
	return func(b *assemblyBuilder) {
		b.installed = set
	}
}

func WithResourceCatalog(catalog *ResourceCatalog) Option {
	return func(b *assemblyBuilder) {
		b.resourceCatalog = catalog
	}
}

func WithFilterCatalog(catalog *FilterCatalog) Option {
	return func(b *assemblyBuilder) {
		b.filters = catalog
	}
}

func WithIndexStore(store IndexStore) Option {
	return func(b *assemblyBuilder) {
		b.indexStore = store
	}
}

func WithTaskEnqueuer(enqueuer TaskEnqueuer) Option {
	return func(b *assemblyBuilder) {
		b.tasks = enqueuer
	}
}

func WithCommandRegistry(registry CommandRegistry) Option {
	return func(b *assemblyBuilder) {
		b.commands = registry
	}
}

// DefaultConfig is the base defaults layer.
func DefaultConfig() map[string]any {
	defaults := settingsToLayerMap(DefaultSettings())
	delete(defaults, KeyAppAbsPath)
	delete(defaults, KeyMediaStorageProvider)
	defaults[KeyDomain] = map[string]any{}
	defaults[KeySources] = map[string]any{}
	return defaults
}

func defaultAssemblyBuilder() assemblyBuilder {
	return assemblyBuilder{
		defaults:             DefaultConfig(),
		metricsRecorder:      NopMetricsRecorder{},
		optionsResolver:      GoOptionsResolver{},
		storageClasses:       NewStorageClassRegistry(),
		allowStorageProvider: true,
		modules:              NewModuleCatalog(),
		installed:            NewInstalledSet(),
		resourceCatalog:      NewResourceCatalog(),
		filters:              NewFilterCatalog(),
	}
}

// Assemble resolves configuration, selects media storage, installs core then
// installed modules, merges the resource catalog and, when ensure_indexes is
// set, creates the declared indexes. Any failure aborts the assembly.
func Assemble(ctx context.Context, opts ...Option) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	builder := defaultAssemblyBuilder()
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}
	startedAt := time.Now()
	provider, logger := resolveLogger(loggerName, builder.loggerProvider, builder.logger)
	metrics := builder.metricsRecorder
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}

	resolver := NewConfigResolver(
		WithSettingsResolver(builder.optionsResolver),
		WithResolverAbsPath(builder.absPath),
	)
	resolved, err := resolver.Resolve(builder.defaults, builder.configObject, builder.override)
	if err != nil {
		return nil, err
	}
	cfg := resolved.Snapshot
	settings := resolved.Settings

	if raw, ok := cfg.Get(KeyDomain); ok {
		if _, err := DomainFromAny(raw); err != nil {
			return nil, configurationError("core: invalid domain configuration", err)
		}
	}
	sources := cfg.Sources()
	for name, resource := range cfg.Domain() {
		if _, ok := sources[name]; !ok {
			sources[name] = resource.SourceName(name)
		}
	}

	var storageClass StorageClass
	media := builder.mediaStorage
	if media == nil {
		storageClass, err = SelectStorageClass(cfg, builder.storageClasses, builder.allowStorageProvider)
		if err != nil {
			logError(ctx, logger, "media storage provider rejected", map[string]any{
				"provider": cfg.String(KeyMediaStorageProvider),
				"error":    err.Error(),
			})
			return nil, err
		}
		media, err = storageClass.New(ctx, cfg)
		if err != nil {
			return nil, configurationError("core: media storage init failed", err)
		}
	}
	logInfo(ctx, logger, "media storage selected", map[string]any{
		"provider": cfg.String(KeyMediaStorageProvider),
	})

	app := &App{
		cfg:            cfg,
		settings:       settings,
		logger:         logger,
		loggerProvider: provider,
		metrics:        metrics,
		media:          media,
		storageClass:   storageClass,
		translator: NewErrorTranslator(
			WithTranslatorLogger(logger),
			WithTranslatorMapper(builder.errorMapper),
		),
		locale: NewLocaleResolver(settings.DefaultLanguage),
		clientConfig: map[string]any{
			"content_expiry_minutes": settings.ContentExpiryMinutes,
			"ingest_expiry_minutes":  settings.IngestExpiryMinutes,
		},
		templateFuncs:   map[string]any{},
		resources:       NewResourceRegistry(cfg, WithResourceLogger(logger)),
		resourceCatalog: builder.resourceCatalog,
		filters:         builder.filters,
		indexStore:      builder.indexStore,
		tasks:           builder.tasks,
		commands:        builder.commands,
	}
	app.installer = NewModuleInstaller(builder.modules,
		WithInstallerSet(builder.installed),
		WithInstallerLogger(logger),
		WithInstallerMetrics(metrics),
	)

	if err := app.installer.InstallAll(ctx, app, settings.CoreApps...); err != nil {
		return nil, err
	}
	if err := app.installer.InstallAll(ctx, app, settings.InstalledApps...); err != nil {
		return nil, err
	}

	added, err := app.resources.MergeCatalog(builder.resourceCatalog)
	if err != nil {
		return nil, err
	}
	app.templateFuncs = builder.filters.FuncMap()

	if builder.commands != nil {
		if err := builder.commands.Initialize(); err != nil {
			return nil, err
		}
	}

	if settings.EnsureIndexes {
		if err := app.InitIndexes(ctx, settings.IgnoreDuplicateKeys); err != nil {
			return nil, err
		}
	}

	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		app.logger = fieldsLogger.WithFields(map[string]any{"log_level": settings.LogLevel})
	}
	logInfo(ctx, app.logger, "assembly complete", map[string]any{
		"modules":           app.installer.Installed().Len(),
		"resources":         len(cfg.Domain()),
		"catalog_resources": len(added),
		"duration_ms":       time.Since(startedAt).Milliseconds(),
	})
	return app, nil
}
