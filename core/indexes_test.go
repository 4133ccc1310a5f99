package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func uniqueEmailDomain() Domain {
	return Domain{
		"users": &Resource{
			Datasource: Datasource{Source: "users"},
			Indexes: map[string]IndexSpec{
				"email_1": {Keys: Keys("email"), Options: &IndexOptions{Unique: true}},
			},
		},
	}
}

func TestIndexManager_DuplicateKeyTolerance(t *testing.T) {
	store := NewMemoryIndexStore("users")
	store.Insert("users", map[string]any{"email": "dup@example.com"})
	store.Insert("users", map[string]any{"email": "dup@example.com"})

	logger := newCaptureLogger()
	manager := NewIndexManager(store, WithIndexLogger(logger))
	if err := manager.EnsureIndexes(context.Background(), uniqueEmailDomain(), true); err != nil {
		t.Fatalf("expected duplicate key to be tolerated, got %v", err)
	}
	record, ok := logger.find("error", "duplicate key building index")
	if !ok {
		t.Fatalf("expected duplicate key error log, got %+v", logger.snapshot())
	}
	if text, _ := record.fields["error"].(string); !strings.Contains(text, "duplicate key") {
		t.Fatalf("expected full error text in log, got %v", record.fields["error"])
	}

	err := manager.EnsureIndexes(context.Background(), uniqueEmailDomain(), false)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey without tolerance, got %v", err)
	}
}

func TestIndexManager_UnknownResourceIsSkipped(t *testing.T) {
	store := NewMemoryIndexStore("items")
	logger := newCaptureLogger()
	manager := NewIndexManager(store,
		WithIndexLogger(logger),
		WithIndexSourceResolver(func(resource string) (string, bool) {
			if resource == "items" {
				return "items", true
			}
			return "", false
		}),
	)
	domain := Domain{
		"ghost": &Resource{Indexes: map[string]IndexSpec{"name_1": {Keys: Keys("name")}}},
		"items": &Resource{Indexes: map[string]IndexSpec{"slug_1": {Keys: Keys("-slug")}}},
	}
	if err := manager.EnsureIndexes(context.Background(), domain, false); err != nil {
		t.Fatalf("expected unknown resource to be skipped, got %v", err)
	}
	if _, ok := logger.find("warn", "resource config missing for index"); !ok {
		t.Fatalf("expected warning for unknown resource")
	}
	req, ok := store.Index("items", "slug_1")
	if !ok {
		t.Fatalf("expected items index to be created after the skipped resource")
	}
	if diff := cmp.Diff([]IndexKey{{Field: "slug", Descending: true}}, req.Keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if !req.Options.IsBackground() || req.Options.Background == nil {
		t.Fatalf("expected background to default to true")
	}
}

func TestIndexManager_RespectsExplicitBackgroundAndIsIdempotent(t *testing.T) {
	store := NewMemoryIndexStore("items")
	background := false
	domain := Domain{"items": &Resource{Indexes: map[string]IndexSpec{
		"slug_1": {Keys: Keys("slug"), Options: &IndexOptions{Background: &background}},
	}}}
	manager := NewIndexManager(store)
	for range 2 {
		if err := manager.EnsureIndexes(context.Background(), domain, false); err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	req, _ := store.Index("items", "slug_1")
	if req.Options.IsBackground() {
		t.Fatalf("expected explicit background=false to be kept")
	}
	if *domain["items"].Indexes["slug_1"].Options.Background {
		t.Fatalf("expected declared options to be left untouched")
	}
}

func TestIndexManager_OtherErrorsAbort(t *testing.T) {
	storeErr := errors.New("connection refused")
	manager := NewIndexManager(failingIndexStore{err: storeErr})
	err := manager.EnsureIndexes(context.Background(), uniqueEmailDomain(), true)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestIndexSpecFromAny_Shapes(t *testing.T) {
	bare, err := IndexSpecFromAny([]any{"name", []any{"created", -1}})
	if err != nil {
		t.Fatalf("bare list: %v", err)
	}
	if diff := cmp.Diff([]IndexKey{{Field: "name"}, {Field: "created", Descending: true}}, bare.Keys); diff != "" {
		t.Fatalf("bare keys mismatch (-want +got):\n%s", diff)
	}
	if bare.Options != nil {
		t.Fatalf("expected bare list to carry no options")
	}

	pair, err := IndexSpecFromAny([]any{[]any{"guid"}, map[string]any{"unique": true, "background": false}})
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if pair.Options == nil || !pair.Options.Unique || pair.Options.IsBackground() {
		t.Fatalf("unexpected pair options %+v", pair.Options)
	}

	mapping, err := IndexSpecFromAny(map[string]any{"keys": []any{"slug"}, "options": map[string]any{"where": "deleted_at IS NULL"}})
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}
	if mapping.Options.Where != "deleted_at IS NULL" {
		t.Fatalf("expected where clause, got %q", mapping.Options.Where)
	}
}

type failingIndexStore struct {
	err error
}

func (s failingIndexStore) CreateIndex(context.Context, IndexRequest) error {
	return s.err
}
