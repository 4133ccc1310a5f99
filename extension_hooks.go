package assembly

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-assembly/core"
)

type ModulePack struct {
	Name    string
	Modules []core.Module
}

type ResourcePack struct {
	Name      string
	Resources map[string]*core.Resource
}

type StorageClassPack struct {
	Name    string
	Classes map[string]core.StorageClass
}

// ExtensionHooks collects packs contributed by downstream packages before
// assembly. Packs are applied in pack name order.
type ExtensionHooks struct {
	mu sync.RWMutex

	modulePacks   map[string]ModulePack
	resourcePacks map[string]ResourcePack
	storagePacks  map[string]StorageClassPack
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		modulePacks:   map[string]ModulePack{},
		resourcePacks: map[string]ResourcePack{},
		storagePacks:  map[string]StorageClassPack{},
	}
}

func (h *ExtensionHooks) RegisterModulePack(pack ModulePack) error {
	if h == nil {
		return fmt.Errorf("assembly: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("assembly: module pack name is required")
	}
	if len(pack.Modules) == 0 {
		return fmt.Errorf("assembly: module pack %q has no modules", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.modulePacks[name]; exists {
		return fmt.Errorf("assembly: module pack %q already registered", name)
	}
	h.modulePacks[name] = ModulePack{Name: name, Modules: append([]core.Module(nil), pack.Modules...)}
	return nil
}

func (h *ExtensionHooks) RegisterResourcePack(pack ResourcePack) error {
	if h == nil {
		return fmt.Errorf("assembly: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("assembly: resource pack name is required")
	}
	if len(pack.Resources) == 0 {
		return fmt.Errorf("assembly: resource pack %q has no resources", name)
	}
	resources := make(map[string]*core.Resource, len(pack.Resources))
	for resourceName, resource := range pack.Resources {
		if resource == nil {
			return fmt.Errorf("assembly: resource pack %q contains nil resource %q", name, resourceName)
		}
		resources[resourceName] = resource.Clone()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.resourcePacks[name]; exists {
		return fmt.Errorf("assembly: resource pack %q already registered", name)
	}
	h.resourcePacks[name] = ResourcePack{Name: name, Resources: resources}
	return nil
}

func (h *ExtensionHooks) RegisterStorageClassPack(pack StorageClassPack) error {
	if h == nil {
		return fmt.Errorf("assembly: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("assembly: storage class pack name is required")
	}
	if len(pack.Classes) == 0 {
		return fmt.Errorf("assembly: storage class pack %q has no classes", name)
	}
	classes := make(map[string]core.StorageClass, len(pack.Classes))
	for className, class := range pack.Classes {
		if class == nil {
			return fmt.Errorf("assembly: storage class pack %q contains nil class %q", name, className)
		}
		classes[className] = class
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.storagePacks[name]; exists {
		return fmt.Errorf("assembly: storage class pack %q already registered", name)
	}
	h.storagePacks[name] = StorageClassPack{Name: name, Classes: classes}
	return nil
}

func (h *ExtensionHooks) ApplyModulePacks(catalog *core.ModuleCatalog) error {
	if h == nil {
		return nil
	}
	if catalog == nil {
		return fmt.Errorf("assembly: module catalog is required")
	}
	for _, pack := range h.ModulePacks() {
		for _, module := range pack.Modules {
			if err := catalog.Register(module); err != nil {
				return fmt.Errorf("assembly: module pack %q: %w", pack.Name, err)
			}
		}
	}
	return nil
}

// ApplyResourcePacks adds pack resources to catalog. Within a pack,
// resources are added in name order.
func (h *ExtensionHooks) ApplyResourcePacks(catalog *core.ResourceCatalog) error {
	if h == nil {
		return nil
	}
	if catalog == nil {
		return fmt.Errorf("assembly: resource catalog is required")
	}
	for _, pack := range h.ResourcePacks() {
		for _, name := range sortedNames(pack.Resources) {
			if err := catalog.Register(name, pack.Resources[name]); err != nil {
				return fmt.Errorf("assembly: resource pack %q: %w", pack.Name, err)
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) ApplyStorageClassPacks(registry *core.StorageClassRegistry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("assembly: storage class registry is required")
	}
	h.mu.RLock()
	names := sortedNames(h.storagePacks)
	packs := make([]StorageClassPack, 0, len(names))
	for _, name := range names {
		packs = append(packs, h.storagePacks[name])
	}
	h.mu.RUnlock()

	for _, pack := range packs {
		for _, className := range sortedNames(pack.Classes) {
			if err := registry.Register(className, pack.Classes[className]); err != nil {
				return fmt.Errorf("assembly: storage class pack %q: %w", pack.Name, err)
			}
		}
	}
	return nil
}

// Options applies every pack to fresh catalogs and returns the matching
// assembly options.
func (h *ExtensionHooks) Options() ([]Option, error) {
	modules := core.NewModuleCatalog()
	resources := core.NewResourceCatalog()
	classes := core.NewStorageClassRegistry()
	if err := h.ApplyModulePacks(modules); err != nil {
		return nil, err
	}
	if err := h.ApplyResourcePacks(resources); err != nil {
		return nil, err
	}
	if err := h.ApplyStorageClassPacks(classes); err != nil {
		return nil, err
	}
	return []Option{
		core.WithModules(modules),
		core.WithResourceCatalog(resources),
		core.WithStorageClasses(classes),
	}, nil
}

func (h *ExtensionHooks) ModulePacks() []ModulePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := sortedNames(h.modulePacks)
	out := make([]ModulePack, 0, len(names))
	for _, name := range names {
		pack := h.modulePacks[name]
		out = append(out, ModulePack{Name: pack.Name, Modules: append([]core.Module(nil), pack.Modules...)})
	}
	return out
}

func (h *ExtensionHooks) ResourcePacks() []ResourcePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := sortedNames(h.resourcePacks)
	out := make([]ResourcePack, 0, len(names))
	for _, name := range names {
		pack := h.resourcePacks[name]
		resources := make(map[string]*core.Resource, len(pack.Resources))
		for resourceName, resource := range pack.Resources {
			resources[resourceName] = resource.Clone()
		}
		out = append(out, ResourcePack{Name: pack.Name, Resources: resources})
	}
	return out
}

func sortedNames[V any](in map[string]V) []string {
	out := make([]string, 0, len(in))
	for name := range in {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
