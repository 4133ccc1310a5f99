package core

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// FilterCatalog collects named template functions contributed by modules.
type FilterCatalog struct {
	mu      sync.RWMutex
	filters map[string]any
}

func NewFilterCatalog() *FilterCatalog {
	return &FilterCatalog{filters: map[string]any{}}
}

func (c *FilterCatalog) Register(name string, fn any) error {
	if c == nil {
		return fmt.Errorf("core: filter catalog is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("core: filter name is required")
	}
	if fn == nil {
		return fmt.Errorf("core: filter %q is nil", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters[name] = fn
	return nil
}

func (c *FilterCatalog) Names() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.filters)
}

// FuncMap copies the catalog into a template.FuncMap.
func (c *FilterCatalog) FuncMap() template.FuncMap {
	out := template.FuncMap{}
	if c == nil {
		return out
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, fn := range c.filters {
		out[name] = fn
	}
	return out
}
