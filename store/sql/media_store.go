package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-assembly/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MediaStore keeps media objects in the assembly_media_objects table.
type MediaStore struct {
	db   *bun.DB
	repo repository.Repository[*mediaRecord]
}

func NewMediaStore(db *bun.DB) (*MediaStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*mediaRecord](db, mediaHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid media repository wiring: %w", err)
		}
	}
	return &MediaStore{db: db, repo: repo}, nil
}

// Put stores object. A new id is generated when none is given; an existing id
// is overwritten.
func (s *MediaStore) Put(ctx context.Context, object core.MediaObject) (string, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return "", fmt.Errorf("sqlstore: media store is not configured")
	}
	object.Resource = strings.TrimSpace(object.Resource)
	if object.Resource == "" {
		return "", fmt.Errorf("sqlstore: media resource is required")
	}
	now := time.Now().UTC()
	object.ID = strings.TrimSpace(object.ID)
	if object.ID == "" {
		object.ID = uuid.NewString()
		created, err := s.repo.Create(ctx, newMediaRecord(object, now))
		if err != nil {
			return "", err
		}
		return created.ID, nil
	}

	record := newMediaRecord(object, now)
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("resource = EXCLUDED.resource").
		Set("filename = EXCLUDED.filename").
		Set("content_type = EXCLUDED.content_type").
		Set("data = EXCLUDED.data").
		Set("metadata = EXCLUDED.metadata").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

func (s *MediaStore) Get(ctx context.Context, id string, resource string) (core.MediaObject, error) {
	if s == nil || s.db == nil {
		return core.MediaObject{}, fmt.Errorf("sqlstore: media store is not configured")
	}
	record := &mediaRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Where("?TableAlias.resource = ?", strings.TrimSpace(resource)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.MediaObject{}, core.NewMediaNotFoundError(resource, id)
		}
		return core.MediaObject{}, err
	}
	return record.toDomain(), nil
}

func (s *MediaStore) Delete(ctx context.Context, id string, resource string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: media store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*mediaRecord)(nil)).
		Where("id = ?", strings.TrimSpace(id)).
		Where("resource = ?", strings.TrimSpace(resource)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.NewMediaNotFoundError(resource, id)
	}
	return nil
}

func (s *MediaStore) Exists(ctx context.Context, id string, resource string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: media store is not configured")
	}
	return s.db.NewSelect().
		Model((*mediaRecord)(nil)).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Where("?TableAlias.resource = ?", strings.TrimSpace(resource)).
		Exists(ctx)
}

// List returns the objects stored for resource, newest first.
func (s *MediaStore) List(ctx context.Context, resource string) ([]core.MediaObject, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: media store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("resource", "=", strings.TrimSpace(resource)),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.MediaObject, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
