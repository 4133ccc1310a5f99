package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-assembly/core"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const (
	// FileSystemClassName is the media_storage_provider value selecting the
	// filesystem backend.
	FileSystemClassName = "storage.FileSystem"
	// KeyMediaRoot overrides the media directory. It defaults to
	// <app_abspath>/media.
	KeyMediaRoot = "media_root"

	metaSuffix = ".meta.yaml"
)

type objectMeta struct {
	Filename    string         `yaml:"filename,omitempty"`
	ContentType string         `yaml:"content_type,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
	CreatedAt   time.Time      `yaml:"created_at"`
}

// FileSystem stores each object as <root>/<resource>/<id> with a YAML
// sidecar holding its metadata. Writes go through atomic renames.
type FileSystem struct {
	root string
}

func NewFileSystem(root string) (*FileSystem, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("storage: root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	return &FileSystem{root: abs}, nil
}

func (f *FileSystem) Root() string {
	if f == nil {
		return ""
	}
	return f.root
}

func (f *FileSystem) Put(_ context.Context, object core.MediaObject) (string, error) {
	if f == nil {
		return "", fmt.Errorf("storage: filesystem is nil")
	}
	id := strings.TrimSpace(object.ID)
	if id == "" {
		id = uuid.NewString()
	}
	dataPath, metaPath, err := f.paths(object.Resource, id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: create resource dir: %w", err)
	}

	createdAt := object.CreatedAt.UTC()
	if object.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	meta, err := yaml.Marshal(objectMeta{
		Filename:    object.Filename,
		ContentType: object.ContentType,
		Metadata:    object.Metadata,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return "", fmt.Errorf("storage: encode metadata: %w", err)
	}
	if err := atomic.WriteFile(dataPath, bytes.NewReader(object.Data)); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", id, err)
	}
	if err := atomic.WriteFile(metaPath, bytes.NewReader(meta)); err != nil {
		return "", fmt.Errorf("storage: write %s metadata: %w", id, err)
	}
	return id, nil
}

func (f *FileSystem) Get(_ context.Context, id string, resource string) (core.MediaObject, error) {
	if f == nil {
		return core.MediaObject{}, fmt.Errorf("storage: filesystem is nil")
	}
	dataPath, metaPath, err := f.paths(resource, id)
	if err != nil {
		return core.MediaObject{}, err
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.MediaObject{}, core.NewMediaNotFoundError(resource, id)
		}
		return core.MediaObject{}, fmt.Errorf("storage: read %s: %w", id, err)
	}

	var meta objectMeta
	raw, err := os.ReadFile(metaPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &meta); err != nil {
			return core.MediaObject{}, fmt.Errorf("storage: decode %s metadata: %w", id, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return core.MediaObject{}, fmt.Errorf("storage: read %s metadata: %w", id, err)
	}
	if meta.Metadata == nil {
		meta.Metadata = map[string]any{}
	}
	return core.MediaObject{
		ID:          strings.TrimSpace(id),
		Resource:    strings.TrimSpace(resource),
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Data:        data,
		Metadata:    meta.Metadata,
		CreatedAt:   meta.CreatedAt.UTC(),
	}, nil
}

func (f *FileSystem) Delete(_ context.Context, id string, resource string) error {
	if f == nil {
		return fmt.Errorf("storage: filesystem is nil")
	}
	dataPath, metaPath, err := f.paths(resource, id)
	if err != nil {
		return err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.NewMediaNotFoundError(resource, id)
		}
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s metadata: %w", id, err)
	}
	return nil
}

func (f *FileSystem) Exists(_ context.Context, id string, resource string) (bool, error) {
	if f == nil {
		return false, fmt.Errorf("storage: filesystem is nil")
	}
	dataPath, _, err := f.paths(resource, id)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// IDs lists stored object ids for resource in sorted order.
func (f *FileSystem) IDs(resource string) ([]string, error) {
	if f == nil {
		return nil, fmt.Errorf("storage: filesystem is nil")
	}
	if err := validSegment("resource", resource); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(f.root, strings.TrimSpace(resource)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, metaSuffix) || strings.HasPrefix(name, ".") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (f *FileSystem) paths(resource, id string) (string, string, error) {
	if err := validSegment("resource", resource); err != nil {
		return "", "", err
	}
	if err := validSegment("id", id); err != nil {
		return "", "", err
	}
	dataPath := filepath.Join(f.root, strings.TrimSpace(resource), strings.TrimSpace(id))
	return dataPath, dataPath + metaSuffix, nil
}

func validSegment(kind, value string) error {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return fmt.Errorf("storage: %s is required", kind)
	case value == "." || value == "..", strings.ContainsAny(value, `/\`):
		return fmt.Errorf("storage: invalid %s %q", kind, value)
	case strings.HasSuffix(value, metaSuffix):
		return fmt.Errorf("storage: %s %q uses a reserved suffix", kind, value)
	}
	return nil
}

// FileSystemClass builds a FileSystem rooted at media_root, or at
// <app_abspath>/media when media_root is unset.
type FileSystemClass struct{}

func (FileSystemClass) New(_ context.Context, cfg *core.Snapshot) (core.MediaStorage, error) {
	root := cfg.String(KeyMediaRoot)
	if root == "" {
		base := cfg.String(core.KeyAppAbsPath)
		if base == "" {
			return nil, fmt.Errorf("storage: %s or %s must be configured", KeyMediaRoot, core.KeyAppAbsPath)
		}
		root = filepath.Join(base, "media")
	}
	return NewFileSystem(root)
}

// Register adds the filesystem class to registry under FileSystemClassName.
func Register(registry *core.StorageClassRegistry) error {
	if registry == nil {
		return fmt.Errorf("storage: storage class registry is nil")
	}
	return registry.Register(FileSystemClassName, FileSystemClass{})
}

var (
	_ core.MediaStorage = (*FileSystem)(nil)
	_ core.StorageClass = FileSystemClass{}
)
