package core

import (
	"context"
	"net/http"
	"sync"
	"text/template"
)

// App is the assembled application handed to module hooks.
type App struct {
	mu sync.RWMutex

	cfg            *Snapshot
	settings       Settings
	logger         Logger
	loggerProvider LoggerProvider
	metrics        MetricsRecorder

	media         MediaStorage
	storageClass  StorageClass
	translator    *ErrorTranslator
	locale        *LocaleResolver
	clientConfig  map[string]any
	templateFuncs template.FuncMap

	resources       *ResourceRegistry
	resourceCatalog *ResourceCatalog
	filters         *FilterCatalog
	installer       *ModuleInstaller
	indexStore      IndexStore
	tasks           TaskEnqueuer
	commands        CommandRegistry
}

func (a *App) Config() *Snapshot {
	if a == nil {
		return nil
	}
	return a.cfg
}

func (a *App) Settings() Settings {
	if a == nil {
		return Settings{}
	}
	return a.settings
}

func (a *App) Logger() Logger {
	if a == nil {
		return ensureLogger(nil)
	}
	return a.logger
}

func (a *App) LoggerProvider() LoggerProvider {
	if a == nil {
		return nil
	}
	return a.loggerProvider
}

func (a *App) Metrics() MetricsRecorder {
	if a == nil || a.metrics == nil {
		return NopMetricsRecorder{}
	}
	return a.metrics
}

func (a *App) MediaStorage() MediaStorage {
	if a == nil {
		return nil
	}
	return a.media
}

// StorageClass is the class selected from configuration. It is nil when the
// media storage was supplied directly.
func (a *App) StorageClass() StorageClass {
	if a == nil {
		return nil
	}
	return a.storageClass
}

func (a *App) ErrorTranslator() *ErrorTranslator {
	if a == nil {
		return NewErrorTranslator()
	}
	return a.translator
}

func (a *App) LocaleResolver() *LocaleResolver {
	if a == nil {
		return NewLocaleResolver(DefaultLanguage)
	}
	return a.locale
}

// Locale resolves the display locale for the user on ctx.
func (a *App) Locale(ctx context.Context) string {
	return a.LocaleResolver().Resolve(ctx)
}

// ClientConfig returns a copy of the configuration exposed to clients.
func (a *App) ClientConfig() map[string]any {
	if a == nil {
		return map[string]any{}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyAnyMap(a.clientConfig)
}

func (a *App) SetClientConfig(key string, value any) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clientConfig[key] = value
}

func (a *App) TemplateFuncs() template.FuncMap {
	if a == nil {
		return template.FuncMap{}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(template.FuncMap, len(a.templateFuncs))
	for name, fn := range a.templateFuncs {
		out[name] = fn
	}
	return out
}

func (a *App) Resources() *ResourceRegistry {
	if a == nil {
		return nil
	}
	return a.resources
}

// ResourceCatalog is where modules contribute resources merged after all
// modules are installed.
func (a *App) ResourceCatalog() *ResourceCatalog {
	if a == nil {
		return nil
	}
	return a.resourceCatalog
}

func (a *App) Filters() *FilterCatalog {
	if a == nil {
		return nil
	}
	return a.filters
}

// RegisterResource stores resource under name, replacing any configured one.
func (a *App) RegisterResource(name string, resource *Resource) error {
	return a.Resources().Register(name, resource)
}

func (a *App) DeclareItemScope(name string, schema Schema) error {
	return a.Resources().DeclareItemScope(name, schema)
}

// Install installs another module from inside a module hook.
func (a *App) Install(ctx context.Context, name string) error {
	if a == nil || a.installer == nil {
		return configurationError("core: module installer is not configured", nil)
	}
	return a.installer.Install(ctx, a, name)
}

func (a *App) InstalledModules() []string {
	if a == nil || a.installer == nil {
		return nil
	}
	return a.installer.Installed().Names()
}

func (a *App) IndexStore() IndexStore {
	if a == nil {
		return nil
	}
	return a.indexStore
}

// InitIndexes ensures every index declared in the domain set.
func (a *App) InitIndexes(ctx context.Context, ignoreDuplicateKeys bool) error {
	if a == nil {
		return configurationError("core: app is nil", nil)
	}
	sources := a.cfg.Sources()
	manager := NewIndexManager(a.indexStore,
		WithIndexLogger(a.logger),
		WithIndexMetrics(a.metrics),
		WithIndexSourceResolver(func(resource string) (string, bool) {
			source, ok := sources[resource]
			return source, ok
		}),
	)
	return manager.EnsureIndexes(ctx, a.cfg.Domain(), ignoreDuplicateKeys)
}

func (a *App) Tasks() TaskEnqueuer {
	if a == nil {
		return nil
	}
	return a.tasks
}

func (a *App) Commands() CommandRegistry {
	if a == nil {
		return nil
	}
	return a.commands
}

// Handler wraps h with error translation, locale resolution and the media
// prefix rewrite.
func (a *App) Handler(h HandlerFunc) http.Handler {
	translated := a.ErrorTranslator().Handler(h)
	localized := LocaleMiddleware(a.LocaleResolver())(translated)
	settings := a.Settings()
	return MediaPrefixMiddleware(settings.MediaPrefix, settings.MediaPrefixesToFix)(localized)
}
