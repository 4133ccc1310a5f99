package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const (
	ResourceArchive         = "archive"
	ResourceArchiveAutosave = "archive_autosave"
	ResourcePublished       = "published"
	ResourceArchived        = "archived"

	DefaultVersionsSuffix = "_versions"
)

// ItemScopeTargets are the content resources every item scope extends.
var ItemScopeTargets = []string{
	ResourceArchive,
	ResourceArchiveAutosave,
	ResourcePublished,
	ResourceArchived,
}

// ItemScope is a named schema fragment. A nil Schema marks a scope declared
// for discovery only.
type ItemScope struct {
	Name   string
	Schema Schema
}

// ResourceCatalog collects resource definitions contributed by modules. It is
// created by the caller and read once when the assembly merges it.
type ResourceCatalog struct {
	mu        sync.RWMutex
	order     []string
	resources map[string]*Resource
}

func NewResourceCatalog() *ResourceCatalog {
	return &ResourceCatalog{resources: map[string]*Resource{}}
}

// Register adds or replaces the definition stored under name.
func (c *ResourceCatalog) Register(name string, resource *Resource) error {
	if c == nil {
		return fmt.Errorf("core: resource catalog is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("core: resource name is required")
	}
	if resource == nil {
		return fmt.Errorf("core: resource %q is nil", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.resources[name]; !exists {
		c.order = append(c.order, name)
	}
	c.resources[name] = resource.Clone()
	return nil
}

func (c *ResourceCatalog) Get(name string) (*Resource, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	resource, ok := c.resources[name]
	if !ok {
		return nil, false
	}
	return resource.Clone(), true
}

// Names lists resources in registration order.
func (c *ResourceCatalog) Names() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

func (c *ResourceCatalog) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// ResourceRegistry writes resources and item scopes into a snapshot.
type ResourceRegistry struct {
	mu     sync.Mutex
	cfg    *Snapshot
	logger Logger
}

type ResourceRegistryOption func(*ResourceRegistry)

func WithResourceLogger(logger Logger) ResourceRegistryOption {
	return func(r *ResourceRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewResourceRegistry(cfg *Snapshot, opts ...ResourceRegistryOption) *ResourceRegistry {
	if cfg == nil {
		cfg = NewSnapshot()
	}
	registry := &ResourceRegistry{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}
	registry.logger = ensureLogger(registry.logger)
	return registry
}

func (r *ResourceRegistry) Config() *Snapshot {
	if r == nil {
		return nil
	}
	return r.cfg
}

// Register stores resource under name, replacing any existing definition, and
// records its source.
func (r *ResourceRegistry) Register(name string, resource *Resource) error {
	if r == nil {
		return fmt.Errorf("core: resource registry is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("core: resource name is required")
	}
	if resource == nil {
		return fmt.Errorf("core: resource %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(name, resource)
	return nil
}

// RegisterIfAbsent stores resource only when name is not configured yet and
// reports whether it did.
func (r *ResourceRegistry) RegisterIfAbsent(name string, resource *Resource) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("core: resource registry is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("core: resource name is required")
	}
	if resource == nil {
		return false, fmt.Errorf("core: resource %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cfg.Domain()[name]; exists {
		return false, nil
	}
	r.registerLocked(name, resource)
	return true, nil
}

func (r *ResourceRegistry) registerLocked(name string, resource *Resource) {
	stored := resource.Clone()
	r.cfg.Domain()[name] = stored
	r.cfg.Sources()[name] = stored.SourceName(name)
	logDebug(context.Background(), r.logger, "resource registered", map[string]any{
		"resource": name,
		"source":   stored.SourceName(name),
	})
}

// MergeCatalog adds every catalog resource missing from the domain set and
// returns the names it added. Configured resources are left untouched.
func (r *ResourceRegistry) MergeCatalog(catalog *ResourceCatalog) ([]string, error) {
	added := []string{}
	for _, name := range catalog.Names() {
		resource, ok := catalog.Get(name)
		if !ok {
			continue
		}
		registered, err := r.RegisterIfAbsent(name, resource)
		if err != nil {
			return added, err
		}
		if registered {
			added = append(added, name)
		}
	}
	return added, nil
}

func (r *ResourceRegistry) Resource(name string) (*Resource, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	resource, ok := r.cfg.Domain()[name]
	return resource, ok
}

func (r *ResourceRegistry) Source(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	source, ok := r.cfg.Sources()[name]
	return source, ok
}

// DeclareItemScope records the scope and, when schema is not nil, merges its
// fields into the schema and projection of every item scope target and of
// each target's versioned counterpart present in the domain set. A non-nil
// empty schema is an assertion failure, as is a missing target resource;
// neither leaves a recorded scope behind.
func (r *ResourceRegistry) DeclareItemScope(name string, schema Schema) error {
	if r == nil {
		return fmt.Errorf("core: resource registry is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("core: item scope name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if schema == nil {
		r.scopesLocked()[name] = ItemScope{Name: name}
		return nil
	}
	if len(schema) == 0 {
		return assertionFailure("core: item scope " + name + " schema must not be empty")
	}

	domain := r.cfg.Domain()
	suffix := r.versionsSuffix()
	targets := make([]*Resource, 0, len(ItemScopeTargets)*2)
	for _, target := range ItemScopeTargets {
		resource, ok := domain[target]
		if !ok || resource == nil {
			return assertionFailure("core: item scope target resource " + target + " is not configured")
		}
		targets = append(targets, resource)
		if versioned, ok := domain[target+suffix]; ok && versioned != nil {
			targets = append(targets, versioned)
		}
	}
	r.scopesLocked()[name] = ItemScope{Name: name, Schema: schema.Clone()}
	for _, resource := range targets {
		applyItemScope(resource, schema)
	}
	logDebug(context.Background(), r.logger, "item scope declared", map[string]any{
		"scope":  name,
		"fields": len(schema),
	})
	return nil
}

func (r *ResourceRegistry) ItemScope(name string) (ItemScope, bool) {
	if r == nil {
		return ItemScope{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scope, ok := r.scopesLocked()[name]
	if !ok {
		return ItemScope{}, false
	}
	return ItemScope{Name: scope.Name, Schema: scope.Schema.Clone()}, true
}

func (r *ResourceRegistry) scopesLocked() map[string]ItemScope {
	if current, ok := r.cfg.Get(KeyItemScope); ok {
		if scopes, ok := current.(map[string]ItemScope); ok && scopes != nil {
			return scopes
		}
	}
	scopes := map[string]ItemScope{}
	r.cfg.Set(KeyItemScope, scopes)
	return scopes
}

func (r *ResourceRegistry) versionsSuffix() string {
	if suffix := r.cfg.String(KeyVersions); suffix != "" {
		return suffix
	}
	return DefaultVersionsSuffix
}

func applyItemScope(resource *Resource, schema Schema) {
	if resource.Schema == nil {
		resource.Schema = Schema{}
	}
	if resource.Datasource.Projection == nil {
		resource.Datasource.Projection = Projection{}
	}
	for field, rule := range schema {
		resource.Schema[field] = rule
		resource.Datasource.Projection[field] = 1
	}
}
