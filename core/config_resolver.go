package core

import (
	"fmt"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// Override is the explicit override layer: a MappingOverride applied key by
// key, or an ObjectOverride loaded like a configuration object.
type Override interface {
	overrideValues() (map[string]any, error)
}

type MappingOverride map[string]any

func (m MappingOverride) overrideValues() (map[string]any, error) {
	return copyAnyMap(m), nil
}

type ObjectOverride struct {
	Object ConfigObject
}

func (o ObjectOverride) overrideValues() (map[string]any, error) {
	if o.Object == nil {
		return map[string]any{}, nil
	}
	return o.Object.ConfigValues()
}

// OptionsResolver builds the typed Settings from layered raw values.
type OptionsResolver interface {
	Resolve(defaults Settings, loaded map[string]any, runtime map[string]any) (Settings, error)
}

type ResolvedConfig struct {
	Snapshot *Snapshot
	Settings Settings
}

type ConfigResolver struct {
	options  OptionsResolver
	defaults Settings
	absPath  string
}

type ConfigResolverOption func(*ConfigResolver)

func WithSettingsResolver(resolver OptionsResolver) ConfigResolverOption {
	return func(r *ConfigResolver) {
		if resolver != nil {
			r.options = resolver
		}
	}
}

func WithDefaultSettings(defaults Settings) ConfigResolverOption {
	return func(r *ConfigResolver) {
		r.defaults = defaults
	}
}

// WithResolverAbsPath sets the app_abspath default applied before the object layer.
func WithResolverAbsPath(path string) ConfigResolverOption {
	return func(r *ConfigResolver) {
		r.absPath = path
	}
}

func NewConfigResolver(options ...ConfigResolverOption) *ConfigResolver {
	resolver := &ConfigResolver{
		options:  GoOptionsResolver{},
		defaults: DefaultSettings(),
	}
	for _, option := range options {
		if option != nil {
			option(resolver)
		}
	}
	return resolver
}

// Resolve layers defaults, then object, then override into a new snapshot.
// Later layers replace earlier values key by key. Resolving the same inputs
// twice yields equal snapshots.
func (r *ConfigResolver) Resolve(defaults map[string]any, object ConfigObject, override Override) (ResolvedConfig, error) {
	if r == nil {
		r = NewConfigResolver()
	}
	cfg := NewSnapshot()
	for _, key := range sortedKeys(defaults) {
		cfg.Set(key, cloneSettingValue(defaults[key]))
	}
	if r.absPath != "" {
		cfg.SetDefault(KeyAppAbsPath, r.absPath)
	}
	cfg.SetDefault(KeyDomain, map[string]any{})
	cfg.SetDefault(KeySources, map[string]any{})

	if object != nil {
		values, err := object.ConfigValues()
		if err != nil {
			return ResolvedConfig{}, configurationError("core: load config object", err)
		}
		applyLayer(cfg, values)
	}

	runtime := map[string]any{}
	if override != nil {
		values, err := override.overrideValues()
		if err != nil {
			return ResolvedConfig{}, configurationError("core: load config override", err)
		}
		applyLayer(cfg, values)
		runtime = values
	}

	loaded := snapshotToLayerMap(cfg)
	runtimeLayer := map[string]any{}
	for key, value := range snapshotToLayerMap(snapshotFromMap(runtime)) {
		runtimeLayer[key] = value
		delete(loaded, key)
	}
	settings, err := r.options.Resolve(r.defaults, loaded, runtimeLayer)
	if err != nil {
		return ResolvedConfig{}, configurationError("core: resolve settings", err)
	}
	return ResolvedConfig{Snapshot: cfg, Settings: settings}, nil
}

func applyLayer(cfg *Snapshot, values map[string]any) {
	for _, key := range sortedKeys(values) {
		cfg.Set(key, cloneSettingValue(values[key]))
	}
}

func snapshotFromMap(values map[string]any) *Snapshot {
	cfg := NewSnapshot()
	applyLayer(cfg, values)
	return cfg
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Settings, loaded map[string]any, runtime map[string]any) (Settings, error) {
	if loaded == nil {
		loaded = map[string]any{}
	}
	if runtime == nil {
		runtime = map[string]any{}
	}
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			settingsToLayerMap(defaults),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loaded,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("overrides", 20),
			runtime,
			opts.WithSnapshotID[map[string]any]("overrides"),
		),
	)
	if err != nil {
		return Settings{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Settings{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Settings](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Settings]((*Settings).Validate),
	)
	if err != nil {
		return Settings{}, err
	}
	return resolved, nil
}
