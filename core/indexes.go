package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

type IndexKey struct {
	Field      string
	Descending bool
}

type IndexOptions struct {
	Unique     bool
	Background *bool
	// Where restricts the index to matching rows (partial index).
	Where string
	Extra map[string]any
}

func (o IndexOptions) Clone() IndexOptions {
	out := IndexOptions{Unique: o.Unique, Where: o.Where}
	if o.Background != nil {
		value := *o.Background
		out.Background = &value
	}
	if o.Extra != nil {
		out.Extra = copyAnyMap(o.Extra)
	}
	return out
}

// IsBackground reports the background flag, true when unset.
func (o IndexOptions) IsBackground() bool {
	return o.Background == nil || *o.Background
}

// IndexSpec is either a bare key list (Options nil) or a key list with options.
type IndexSpec struct {
	Keys    []IndexKey
	Options *IndexOptions
}

func (s IndexSpec) Clone() IndexSpec {
	out := IndexSpec{Keys: append([]IndexKey(nil), s.Keys...)}
	if s.Options != nil {
		options := s.Options.Clone()
		out.Options = &options
	}
	return out
}

// Normalize returns the key list and a detached options value with
// background defaulted to true.
func (s IndexSpec) Normalize() ([]IndexKey, IndexOptions) {
	keys := append([]IndexKey(nil), s.Keys...)
	options := IndexOptions{}
	if s.Options != nil {
		options = s.Options.Clone()
	}
	if options.Background == nil {
		background := true
		options.Background = &background
	}
	return keys, options
}

func Keys(fields ...string) []IndexKey {
	out := make([]IndexKey, 0, len(fields))
	for _, field := range fields {
		out = append(out, parseKeyString(field))
	}
	return out
}

func parseKeyString(field string) IndexKey {
	field = strings.TrimSpace(field)
	if strings.HasPrefix(field, "-") {
		return IndexKey{Field: strings.TrimPrefix(field, "-"), Descending: true}
	}
	return IndexKey{Field: field}
}

func indexesFromAny(value any) (map[string]IndexSpec, error) {
	if value == nil {
		return nil, nil
	}
	if typed, ok := value.(map[string]IndexSpec); ok {
		out := make(map[string]IndexSpec, len(typed))
		for name, spec := range typed {
			out[name] = spec.Clone()
		}
		return out, nil
	}
	raw, err := asAnyMap(value)
	if err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}
	out := make(map[string]IndexSpec, len(raw))
	for name, item := range raw {
		spec, err := IndexSpecFromAny(item)
		if err != nil {
			return nil, fmt.Errorf("indexes: %s: %w", name, err)
		}
		out[name] = spec
	}
	return out, nil
}

// IndexSpecFromAny decodes a bare key list, a [keys, options] pair or a
// {keys, options} mapping.
func IndexSpecFromAny(value any) (IndexSpec, error) {
	switch typed := value.(type) {
	case IndexSpec:
		return typed.Clone(), nil
	case []IndexKey:
		return IndexSpec{Keys: append([]IndexKey(nil), typed...)}, nil
	case []string:
		return IndexSpec{Keys: Keys(typed...)}, nil
	case []any:
		if len(typed) == 2 {
			if _, isList := typed[0].([]any); isList {
				if _, isMap := typed[1].(map[string]any); isMap {
					return indexPairFromAny(typed[0], typed[1])
				}
			}
		}
		keys, err := indexKeysFromAny(typed)
		if err != nil {
			return IndexSpec{}, err
		}
		return IndexSpec{Keys: keys}, nil
	case map[string]any:
		return indexPairFromAny(typed["keys"], typed["options"])
	default:
		return IndexSpec{}, fmt.Errorf("unsupported index value %T", value)
	}
}

func indexPairFromAny(rawKeys any, rawOptions any) (IndexSpec, error) {
	list, ok := rawKeys.([]any)
	if !ok {
		if strs, isStrings := rawKeys.([]string); isStrings {
			list = make([]any, 0, len(strs))
			for _, item := range strs {
				list = append(list, item)
			}
		} else {
			return IndexSpec{}, fmt.Errorf("index keys must be a list, got %T", rawKeys)
		}
	}
	keys, err := indexKeysFromAny(list)
	if err != nil {
		return IndexSpec{}, err
	}
	spec := IndexSpec{Keys: keys}
	if rawOptions == nil {
		return spec, nil
	}
	optionsMap, err := asAnyMap(rawOptions)
	if err != nil {
		return IndexSpec{}, fmt.Errorf("index options: %w", err)
	}
	options := IndexOptions{}
	for key, item := range optionsMap {
		switch key {
		case "unique":
			options.Unique, _ = toBool(item)
		case "background":
			background, _ := toBool(item)
			options.Background = &background
		case "where", "partial_filter":
			text, ok := item.(string)
			if !ok {
				return IndexSpec{}, fmt.Errorf("index option %s must be a string, got %T", key, item)
			}
			options.Where = text
		default:
			if options.Extra == nil {
				options.Extra = map[string]any{}
			}
			options.Extra[key] = item
		}
	}
	spec.Options = &options
	return spec, nil
}

func indexKeysFromAny(list []any) ([]IndexKey, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("index keys are required")
	}
	out := make([]IndexKey, 0, len(list))
	for _, item := range list {
		switch typed := item.(type) {
		case string:
			out = append(out, parseKeyString(typed))
		case []any:
			if len(typed) != 2 {
				return nil, fmt.Errorf("index key pair must have 2 elements, got %d", len(typed))
			}
			field, ok := typed[0].(string)
			if !ok {
				return nil, fmt.Errorf("index key field must be a string, got %T", typed[0])
			}
			key := IndexKey{Field: strings.TrimSpace(field)}
			if direction, ok := typed[1].(string); ok {
				key.Descending = strings.EqualFold(strings.TrimSpace(direction), "desc")
			} else if order, ok := toInt(typed[1]); ok {
				key.Descending = order < 0
			}
			out = append(out, key)
		default:
			return nil, fmt.Errorf("unsupported index key %T", item)
		}
	}
	return out, nil
}

type IndexManager struct {
	store   IndexStore
	sources func(resource string) (string, bool)
	logger  Logger
	metrics MetricsRecorder
}

type IndexManagerOption func(*IndexManager)

func WithIndexSourceResolver(resolver func(resource string) (string, bool)) IndexManagerOption {
	return func(m *IndexManager) {
		m.sources = resolver
	}
}

func WithIndexLogger(logger Logger) IndexManagerOption {
	return func(m *IndexManager) {
		m.logger = logger
	}
}

func WithIndexMetrics(recorder MetricsRecorder) IndexManagerOption {
	return func(m *IndexManager) {
		m.metrics = recorder
	}
}

func NewIndexManager(store IndexStore, opts ...IndexManagerOption) *IndexManager {
	manager := &IndexManager{store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	manager.logger = ensureLogger(manager.logger)
	if manager.metrics == nil {
		manager.metrics = NopMetricsRecorder{}
	}
	return manager
}

// EnsureIndexes creates every index declared in domain. Unknown resources are
// logged and skipped. Duplicate key failures are logged and abort unless
// ignoreDuplicateKeys is set.
func (m *IndexManager) EnsureIndexes(ctx context.Context, domain Domain, ignoreDuplicateKeys bool) error {
	if m == nil || m.store == nil {
		return configurationError("core: index store is required", nil)
	}
	for _, resourceName := range domain.Names() {
		resource := domain[resourceName]
		if resource == nil || len(resource.Indexes) == 0 {
			continue
		}
		source := m.resolveSource(resourceName, resource)
		for _, indexName := range sortedKeys(resource.Indexes) {
			keys, options := resource.Indexes[indexName].Normalize()
			startedAt := time.Now()
			err := m.store.CreateIndex(ctx, IndexRequest{
				Resource: resourceName,
				Source:   source,
				Name:     indexName,
				Keys:     keys,
				Options:  options,
			})
			m.observe(ctx, resourceName, indexName, startedAt, err)
			switch {
			case err == nil:
				logInfo(ctx, m.logger, "index ensured", map[string]any{
					"resource": resourceName,
					"index":    indexName,
				})
			case errors.Is(err, ErrUnknownResource):
				logWarn(ctx, m.logger, "resource config missing for index", map[string]any{
					"resource": resourceName,
					"index":    indexName,
				})
			case errors.Is(err, ErrDuplicateKey):
				logError(ctx, m.logger, "duplicate key building index", map[string]any{
					"resource": resourceName,
					"index":    indexName,
					"error":    err.Error(),
				})
				if !ignoreDuplicateKeys {
					return duplicateKeyError(resourceName, indexName, err)
				}
			default:
				return err
			}
		}
	}
	return nil
}

func (m *IndexManager) resolveSource(name string, resource *Resource) string {
	if m.sources == nil {
		return resource.SourceName(name)
	}
	source, ok := m.sources(name)
	if !ok {
		return ""
	}
	return source
}

func (m *IndexManager) observe(ctx context.Context, resource string, index string, startedAt time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownResource):
		status = "skipped"
	case errors.Is(err, ErrDuplicateKey):
		status = "duplicate_key"
	default:
		status = "failure"
	}
	tags := map[string]string{"resource": resource, "index": index, "status": status}
	m.metrics.IncCounter(ctx, "assembly.index.ensure.total", 1, tags)
	m.metrics.ObserveHistogram(ctx, "assembly.index.ensure.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
}

// MemoryIndexStore keeps index definitions in memory. Sources lists the known
// sources and Rows holds existing rows per source for unique checks.
type MemoryIndexStore struct {
	mu      sync.Mutex
	sources map[string]struct{}
	rows    map[string][]map[string]any
	indexes map[string]map[string]IndexRequest
	calls   []IndexRequest
}

func NewMemoryIndexStore(sources ...string) *MemoryIndexStore {
	store := &MemoryIndexStore{
		sources: map[string]struct{}{},
		rows:    map[string][]map[string]any{},
		indexes: map[string]map[string]IndexRequest{},
	}
	for _, source := range sources {
		store.AddSource(source)
	}
	return store
}

func (s *MemoryIndexStore) AddSource(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[strings.TrimSpace(source)] = struct{}{}
}

func (s *MemoryIndexStore) Insert(source string, row map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[source] = append(s.rows[source], copyAnyMap(row))
}

func (s *MemoryIndexStore) CreateIndex(_ context.Context, req IndexRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	source := strings.TrimSpace(req.Source)
	if _, ok := s.sources[source]; !ok || source == "" {
		return fmt.Errorf("memory index store: %s: %w", req.Resource, ErrUnknownResource)
	}
	if _, exists := s.indexes[source][req.Name]; exists {
		return nil
	}
	if req.Options.Unique {
		seen := map[string]struct{}{}
		for _, row := range s.rows[source] {
			parts := make([]string, 0, len(req.Keys))
			for _, key := range req.Keys {
				parts = append(parts, fmt.Sprint(row[key.Field]))
			}
			fingerprint := strings.Join(parts, "\x00")
			if _, dup := seen[fingerprint]; dup {
				return fmt.Errorf("memory index store: %s.%s: %w", source, req.Name, ErrDuplicateKey)
			}
			seen[fingerprint] = struct{}{}
		}
	}
	if s.indexes[source] == nil {
		s.indexes[source] = map[string]IndexRequest{}
	}
	s.indexes[source][req.Name] = req
	return nil
}

func (s *MemoryIndexStore) Index(source string, name string) (IndexRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.indexes[source][name]
	return req, ok
}

func (s *MemoryIndexStore) Calls() []IndexRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]IndexRequest(nil), s.calls...)
}
