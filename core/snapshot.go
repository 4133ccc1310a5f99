package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	KeyDomain               = "domain"
	KeySources              = "sources"
	KeyAppAbsPath           = "app_abspath"
	KeyMediaStorageProvider = "media_storage_provider"
	KeyDefaultLanguage      = "default_language"
	KeyMediaPrefix          = "media_prefix"
	KeyMediaPrefixesToFix   = "media_prefixes_to_fix"
	KeyCoreApps             = "core_apps"
	KeyInstalledApps        = "installed_apps"
	KeyVersions             = "versions"
	KeyItemScope            = "item_scope"
	KeyContentExpiryMinutes = "content_expiry_minutes"
	KeyIngestExpiryMinutes  = "ingest_expiry_minutes"
	KeyEnsureIndexes        = "ensure_indexes"
	KeyIgnoreDuplicateKeys  = "ignore_duplicate_keys"
	KeyLogLevel             = "log_level"
)

// Snapshot is the resolved configuration: an insertion-ordered mapping from
// setting name to value. Unknown keys are kept as-is.
type Snapshot struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]any
}

func NewSnapshot() *Snapshot {
	return &Snapshot{values: map[string]any{}}
}

func (s *Snapshot) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

func (s *Snapshot) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key. An existing key keeps its position.
func (s *Snapshot) Set(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value)
}

func (s *Snapshot) setLocked(key string, value any) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// SetDefault stores value only when key is absent and returns the value held
// under key afterwards.
func (s *Snapshot) SetDefault(key string, value any) any {
	if s == nil {
		return value
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, exists := s.values[key]; exists {
		return current
	}
	s.setLocked(key, value)
	return value
}

func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.keys...)
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Values returns a shallow copy of the mapping.
func (s *Snapshot) Values() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for key, value := range s.values {
		out[key] = value
	}
	return out
}

// Clone copies the snapshot. Domain values are deep copied.
func (s *Snapshot) Clone() *Snapshot {
	out := NewSnapshot()
	if s == nil {
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.keys {
		out.setLocked(key, cloneSettingValue(s.values[key]))
	}
	return out
}

func (s *Snapshot) String(key string) string {
	value, ok := s.Get(key)
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprint(value)
}

func (s *Snapshot) Strings(key string) []string {
	value, ok := s.Get(key)
	if !ok {
		return nil
	}
	out, _ := toStringSlice(value)
	return out
}

func (s *Snapshot) Int(key string) int {
	value, ok := s.Get(key)
	if !ok {
		return 0
	}
	out, _ := toInt(value)
	return out
}

func (s *Snapshot) Bool(key string) bool {
	value, ok := s.Get(key)
	if !ok {
		return false
	}
	out, _ := toBool(value)
	return out
}

// Domain returns the domain set, installing an empty one when missing.
func (s *Snapshot) Domain() Domain {
	if s == nil {
		return Domain{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.values[KeyDomain].(Domain); ok && current != nil {
		return current
	}
	domain := Domain{}
	if raw, exists := s.values[KeyDomain]; exists && raw != nil {
		if parsed, err := DomainFromAny(raw); err == nil {
			domain = parsed
		}
	}
	s.setLocked(KeyDomain, domain)
	return domain
}

// Sources returns the resource to source name mapping, installing an empty
// one when missing.
func (s *Snapshot) Sources() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.values[KeySources].(map[string]string); ok && current != nil {
		return current
	}
	sources := map[string]string{}
	if raw, exists := s.values[KeySources]; exists && raw != nil {
		if parsed, err := toStringMap(raw); err == nil {
			sources = parsed
		}
	}
	s.setLocked(KeySources, sources)
	return sources
}

func cloneSettingValue(value any) any {
	switch typed := value.(type) {
	case Domain:
		return typed.Clone()
	case map[string]string:
		out := make(map[string]string, len(typed))
		for key, item := range typed {
			out[key] = item
		}
		return out
	case map[string]any:
		return copyAnyMap(typed)
	case []string:
		return append([]string(nil), typed...)
	case []any:
		return append([]any(nil), typed...)
	case map[string]ItemScope:
		out := make(map[string]ItemScope, len(typed))
		for key, scope := range typed {
			out[key] = ItemScope{Name: scope.Name, Schema: scope.Schema.Clone()}
		}
		return out
	default:
		return value
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		if nested, ok := value.(map[string]any); ok {
			out[key] = copyAnyMap(nested)
			continue
		}
		out[key] = value
	}
	return out
}

func sortedKeys[V any](in map[string]V) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func toStringSlice(value any) ([]string, bool) {
	switch typed := value.(type) {
	case nil:
		return nil, true
	case []string:
		return append([]string(nil), typed...), true
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, text)
		}
		return out, true
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil, true
		}
		return []string{typed}, true
	default:
		return nil, false
	}
}

func toInt(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int32:
		return int(typed), true
	case int64:
		return int(typed), true
	case uint:
		return int(typed), true
	case uint64:
		return int(typed), true
	case float32:
		return int(typed), true
	case float64:
		return int(typed), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func toBool(value any) (bool, bool) {
	switch typed := value.(type) {
	case bool:
		return typed, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return false, false
		}
		return parsed, true
	case int, int64, float64:
		number, _ := toInt(typed)
		return number != 0, true
	default:
		return false, false
	}
}

func toStringMap(value any) (map[string]string, error) {
	switch typed := value.(type) {
	case map[string]string:
		out := make(map[string]string, len(typed))
		for key, item := range typed {
			out[key] = item
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(typed))
		for key, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("core: source %q must be a string, got %T", key, item)
			}
			out[key] = text
		}
		return out, nil
	default:
		return nil, fmt.Errorf("core: unsupported sources value %T", value)
	}
}
