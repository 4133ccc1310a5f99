package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// InitFunc is a module initialization hook. It receives the live App.
type InitFunc func(app *App) error

// Module is a named feature module. Init is optional.
type Module struct {
	Name string
	Init InitFunc
}

// ModuleCatalog resolves module names to modules.
type ModuleCatalog struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func NewModuleCatalog(modules ...Module) *ModuleCatalog {
	catalog := &ModuleCatalog{modules: map[string]Module{}}
	for _, module := range modules {
		_ = catalog.Register(module)
	}
	return catalog
}

func (c *ModuleCatalog) Register(module Module) error {
	if c == nil {
		return fmt.Errorf("core: module catalog is nil")
	}
	name := strings.TrimSpace(module.Name)
	if name == "" {
		return fmt.Errorf("core: module name is required")
	}
	module.Name = name
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.modules[name]; exists {
		return fmt.Errorf("core: module already registered: %s", name)
	}
	c.modules[name] = module
	return nil
}

func (c *ModuleCatalog) Lookup(name string) (Module, bool) {
	if c == nil {
		return Module{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	module, ok := c.modules[strings.TrimSpace(name)]
	return module, ok
}

func (c *ModuleCatalog) Names() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.modules)
}

// InstalledSet records installed module names. It only grows.
type InstalledSet struct {
	mu    sync.RWMutex
	order []string
	names map[string]struct{}
}

func NewInstalledSet() *InstalledSet {
	return &InstalledSet{names: map[string]struct{}{}}
}

func (s *InstalledSet) Has(name string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[name]
	return ok
}

// Add reports whether name was newly added.
func (s *InstalledSet) Add(name string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.names[name]; exists {
		return false
	}
	s.names[name] = struct{}{}
	s.order = append(s.order, name)
	return true
}

// Names lists installed modules in installation order.
func (s *InstalledSet) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *InstalledSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ModuleInstaller runs module hooks against an App at most once per name.
type ModuleInstaller struct {
	catalog   *ModuleCatalog
	installed *InstalledSet
	logger    Logger
	metrics   MetricsRecorder
}

type ModuleInstallerOption func(*ModuleInstaller)

func WithInstallerSet(set *InstalledSet) ModuleInstallerOption {
	return func(i *ModuleInstaller) {
		if set != nil {
			i.installed = set
		}
	}
}

func WithInstallerLogger(logger Logger) ModuleInstallerOption {
	return func(i *ModuleInstaller) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func WithInstallerMetrics(recorder MetricsRecorder) ModuleInstallerOption {
	return func(i *ModuleInstaller) {
		if recorder != nil {
			i.metrics = recorder
		}
	}
}

func NewModuleInstaller(catalog *ModuleCatalog, opts ...ModuleInstallerOption) *ModuleInstaller {
	if catalog == nil {
		catalog = NewModuleCatalog()
	}
	installer := &ModuleInstaller{
		catalog:   catalog,
		installed: NewInstalledSet(),
		metrics:   NopMetricsRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(installer)
		}
	}
	installer.logger = ensureLogger(installer.logger)
	return installer
}

func (i *ModuleInstaller) Installed() *InstalledSet {
	if i == nil {
		return nil
	}
	return i.installed
}

// Install runs the hook of module name unless it is already installed. The
// name is recorded before the hook runs so a module that installs itself
// again through another module returns immediately.
func (i *ModuleInstaller) Install(ctx context.Context, app *App, name string) error {
	if i == nil {
		return fmt.Errorf("core: module installer is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("core: module name is required")
	}
	if !i.installed.Add(name) {
		logDebug(ctx, i.logger, "module already installed", map[string]any{"module": name})
		return nil
	}

	startedAt := time.Now()
	module, ok := i.catalog.Lookup(name)
	if !ok {
		err := moduleNotFoundError(name)
		i.observe(ctx, name, startedAt, err)
		return err
	}
	if module.Init != nil {
		if err := module.Init(app); err != nil {
			i.observe(ctx, name, startedAt, err)
			return fmt.Errorf("core: module %s: %w", name, err)
		}
	}
	i.observe(ctx, name, startedAt, nil)
	logInfo(ctx, i.logger, "module installed", map[string]any{
		"module":      name,
		"duration_ms": time.Since(startedAt).Milliseconds(),
	})
	return nil
}

// InstallAll installs names in order and stops at the first failure.
func (i *ModuleInstaller) InstallAll(ctx context.Context, app *App, names ...string) error {
	for _, name := range names {
		if err := i.Install(ctx, app, name); err != nil {
			return err
		}
	}
	return nil
}

func (i *ModuleInstaller) observe(ctx context.Context, name string, startedAt time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	tags := map[string]string{"module": name, "status": status}
	i.metrics.IncCounter(ctx, "assembly.module.install.total", 1, tags)
	i.metrics.ObserveHistogram(ctx, "assembly.module.install.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
}
