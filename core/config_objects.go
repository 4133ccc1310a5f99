package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// ConfigObject supplies a whole configuration layer.
type ConfigObject interface {
	ConfigValues() (map[string]any, error)
}

type MapObject map[string]any

func (m MapObject) ConfigValues() (map[string]any, error) {
	return copyAnyMap(m), nil
}

type ObjectFunc func() (map[string]any, error)

func (f ObjectFunc) ConfigValues() (map[string]any, error) {
	if f == nil {
		return map[string]any{}, nil
	}
	return f()
}

// ObjectCatalog holds named configuration objects, so a layer can be selected
// by name from configuration or flags.
type ObjectCatalog struct {
	mu      sync.RWMutex
	objects map[string]ConfigObject
}

func NewObjectCatalog() *ObjectCatalog {
	return &ObjectCatalog{objects: map[string]ConfigObject{}}
}

func (c *ObjectCatalog) Register(name string, object ConfigObject) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("core: config object name is required")
	}
	if object == nil {
		return fmt.Errorf("core: config object %q is nil", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.objects[name]; exists {
		return fmt.Errorf("core: config object already registered: %s", name)
	}
	c.objects[name] = object
	return nil
}

func (c *ObjectCatalog) Get(name string) (ConfigObject, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	object, ok := c.objects[strings.TrimSpace(name)]
	return object, ok
}

// Named resolves name against catalog when the layer is loaded.
func (c *ObjectCatalog) Named(name string) ConfigObject {
	return ObjectFunc(func() (map[string]any, error) {
		object, ok := c.Get(name)
		if !ok {
			return nil, configurationError(fmt.Sprintf("core: config object %q is not registered", name), nil)
		}
		return object.ConfigValues()
	})
}

type YAMLFile string

func (f YAMLFile) ConfigValues() (map[string]any, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, configurationError("core: read yaml config", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, configurationError(fmt.Sprintf("core: parse yaml config %s", string(f)), err)
	}
	return values, nil
}

// JSONCFile reads JSON with comments and trailing commas.
type JSONCFile string

func (f JSONCFile) ConfigValues() (map[string]any, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, configurationError("core: read json config", err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, configurationError(fmt.Sprintf("core: parse json config %s", string(f)), err)
	}
	values := map[string]any{}
	if err := json.Unmarshal(standardized, &values); err != nil {
		return nil, configurationError(fmt.Sprintf("core: decode json config %s", string(f)), err)
	}
	return values, nil
}

// FileObject picks the loader from the file extension.
func FileObject(path string) ConfigObject {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLFile(path)
	default:
		return JSONCFile(path)
	}
}
