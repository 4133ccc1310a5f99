package core

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

type notAStorageClass struct{}

func snapshotWith(values map[string]any) *Snapshot {
	cfg := NewSnapshot()
	for _, key := range sortedKeys(values) {
		cfg.Set(key, values[key])
	}
	return cfg
}

func TestSelectStorageClass_DefaultsToProxy(t *testing.T) {
	class, err := SelectStorageClass(NewSnapshot(), NewStorageClassRegistry(), true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, ok := class.(ProxyStorageClass); !ok {
		t.Fatalf("expected proxy storage class, got %T", class)
	}
}

func TestSelectStorageClass_UsesRegisteredProvider(t *testing.T) {
	registry := NewStorageClassRegistry()
	if err := registry.Register("storage.Custom", MemoryStorageClass{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	cfg := snapshotWith(map[string]any{KeyMediaStorageProvider: "storage.Custom"})

	class, err := SelectStorageClass(cfg, registry, true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, ok := class.(MemoryStorageClass); !ok {
		t.Fatalf("expected memory storage class, got %T", class)
	}

	class, err = SelectStorageClass(cfg, registry, false)
	if err != nil {
		t.Fatalf("select without provider override: %v", err)
	}
	if _, ok := class.(ProxyStorageClass); !ok {
		t.Fatalf("expected proxy when provider override is disabled, got %T", class)
	}
}

func TestSelectStorageClass_RejectsInvalidProviders(t *testing.T) {
	registry := NewStorageClassRegistry()
	if err := registry.Register("storage.Broken", notAStorageClass{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, provider := range []string{"storage.Broken", "storage.Missing"} {
		cfg := snapshotWith(map[string]any{KeyMediaStorageProvider: provider})
		_, err := SelectStorageClass(cfg, registry, true)
		if err == nil {
			t.Fatalf("expected %s to be rejected", provider)
		}
		if !errors.Is(err, ErrInvalidStorageProvider) {
			t.Fatalf("expected ErrInvalidStorageProvider for %s, got %v", provider, err)
		}
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) || richErr.TextCode != AssemblyErrorStorageProviderInvalid {
			t.Fatalf("expected storage provider text code for %s, got %v", provider, err)
		}
	}
}

func TestProxyMediaStorage_RoutesByResourceAndRequest(t *testing.T) {
	ctx := context.Background()
	fallback := NewMemoryMediaStorage()
	routed := NewMemoryMediaStorage()
	request := NewMemoryMediaStorage()

	proxy := NewProxyMediaStorage(fallback)
	if err := proxy.Route("avatars", routed); err != nil {
		t.Fatalf("route: %v", err)
	}

	if _, err := proxy.Put(ctx, MediaObject{ID: "a1", Resource: "avatars", Data: []byte("png")}); err != nil {
		t.Fatalf("put routed: %v", err)
	}
	if _, err := proxy.Put(ctx, MediaObject{ID: "u1", Resource: "uploads"}); err != nil {
		t.Fatalf("put fallback: %v", err)
	}
	if _, err := proxy.Put(WithRequestStorage(ctx, request), MediaObject{ID: "r1", Resource: "avatars"}); err != nil {
		t.Fatalf("put request: %v", err)
	}

	if ids := routed.IDs("avatars"); len(ids) != 1 || ids[0] != "a1" {
		t.Fatalf("expected routed storage to hold a1, got %v", ids)
	}
	if ids := fallback.IDs("uploads"); len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("expected fallback storage to hold u1, got %v", ids)
	}
	if ids := request.IDs("avatars"); len(ids) != 1 || ids[0] != "r1" {
		t.Fatalf("expected request storage to hold r1, got %v", ids)
	}

	exists, err := proxy.Exists(ctx, "a1", "avatars")
	if err != nil || !exists {
		t.Fatalf("expected a1 to exist through proxy, got %v %v", exists, err)
	}
}

func TestMemoryMediaStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryMediaStorage()

	id, err := storage.Put(ctx, MediaObject{Resource: "uploads", Filename: "a.txt", Data: []byte("hello")})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}
	object, err := storage.Get(ctx, id, "uploads")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(object.Data) != "hello" || object.CreatedAt.IsZero() {
		t.Fatalf("unexpected object %+v", object)
	}
	if err := storage.Delete(ctx, id, "uploads"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := storage.Get(ctx, id, "uploads"); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
	if err := storage.Delete(ctx, id, "uploads"); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound on second delete, got %v", err)
	}
}
