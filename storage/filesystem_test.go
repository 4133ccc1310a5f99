package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-assembly/core"
	"github.com/google/go-cmp/cmp"
)

func TestFileSystem_Lifecycle(t *testing.T) {
	ctx := context.Background()
	fsys, err := NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}

	id, err := fsys.Put(ctx, core.MediaObject{
		Resource:    "archive",
		Filename:    "cover.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
		Metadata:    map[string]any{"width": 640},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}

	object, err := fsys.Get(ctx, id, "archive")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(object.Data) != "png-bytes" || object.Filename != "cover.png" || object.ContentType != "image/png" {
		t.Fatalf("unexpected object: %+v", object)
	}
	if object.Metadata["width"] != 640 {
		t.Fatalf("expected metadata to round trip, got %#v", object.Metadata)
	}
	if object.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be recorded")
	}

	if _, err := os.Stat(filepath.Join(fsys.Root(), "archive", id)); err != nil {
		t.Fatalf("expected object file on disk: %v", err)
	}

	ids, err := fsys.IDs("archive")
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if diff := cmp.Diff([]string{id}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	if err := fsys.Delete(ctx, id, "archive"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	exists, err := fsys.Exists(ctx, id, "archive")
	if err != nil || exists {
		t.Fatalf("expected object to be gone, exists=%v err=%v", exists, err)
	}
	if _, err := fsys.Get(ctx, id, "archive"); !errors.Is(err, core.ErrMediaNotFound) {
		t.Fatalf("expected media not found, got %v", err)
	}
	if err := fsys.Delete(ctx, id, "archive"); !errors.Is(err, core.ErrMediaNotFound) {
		t.Fatalf("expected media not found on second delete, got %v", err)
	}
}

func TestFileSystem_OverwritesExistingID(t *testing.T) {
	ctx := context.Background()
	fsys, err := NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	for _, payload := range []string{"v1", "v2"} {
		if _, err := fsys.Put(ctx, core.MediaObject{ID: "m1", Resource: "archive", Data: []byte(payload)}); err != nil {
			t.Fatalf("put %s: %v", payload, err)
		}
	}
	object, err := fsys.Get(ctx, "m1", "archive")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(object.Data) != "v2" {
		t.Fatalf("expected latest payload, got %q", object.Data)
	}
}

func TestFileSystem_RejectsUnsafeSegments(t *testing.T) {
	ctx := context.Background()
	fsys, err := NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	cases := []core.MediaObject{
		{ID: "../escape", Resource: "archive"},
		{ID: "m1", Resource: ".."},
		{ID: "m1", Resource: ""},
		{ID: "m1" + metaSuffix, Resource: "archive"},
	}
	for _, object := range cases {
		if _, err := fsys.Put(ctx, object); err == nil {
			t.Fatalf("expected %q/%q to be rejected", object.Resource, object.ID)
		}
	}
}

func TestFileSystemClass_SelectedByProvider(t *testing.T) {
	root := t.TempDir()
	registry := core.NewStorageClassRegistry()
	if err := Register(registry); err != nil {
		t.Fatalf("register: %v", err)
	}

	app, err := core.Assemble(context.Background(),
		core.WithStorageClasses(registry),
		core.WithAppAbsPath(root),
		core.WithConfig(map[string]any{"media_storage_provider": FileSystemClassName}),
	)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	fsys, ok := app.MediaStorage().(*FileSystem)
	if !ok {
		t.Fatalf("expected filesystem media storage, got %T", app.MediaStorage())
	}
	if want := filepath.Join(root, "media"); fsys.Root() != want {
		t.Fatalf("expected root %q, got %q", want, fsys.Root())
	}
}

func TestFileSystemClass_RequiresRoot(t *testing.T) {
	if _, err := (FileSystemClass{}).New(context.Background(), core.NewSnapshot()); err == nil {
		t.Fatalf("expected missing root configuration to fail")
	}
	cfg := core.NewSnapshot()
	cfg.Set(KeyMediaRoot, t.TempDir())
	if _, err := (FileSystemClass{}).New(context.Background(), cfg); err != nil {
		t.Fatalf("expected media_root to be honoured: %v", err)
	}
}
