package sqlstore

import (
	"time"

	"github.com/goliatone/go-assembly/core"
	"github.com/uptrace/bun"
)

type mediaRecord struct {
	bun.BaseModel `bun:"table:assembly_media_objects,alias:amo"`

	ID          string         `bun:"id,pk"`
	Resource    string         `bun:"resource,notnull"`
	Filename    string         `bun:"filename"`
	ContentType string         `bun:"content_type"`
	Data        []byte         `bun:"data"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newMediaRecord(object core.MediaObject, now time.Time) *mediaRecord {
	createdAt := object.CreatedAt.UTC()
	if object.CreatedAt.IsZero() {
		createdAt = now
	}
	metadata := copyAnyMap(object.Metadata)
	return &mediaRecord{
		ID:          object.ID,
		Resource:    object.Resource,
		Filename:    object.Filename,
		ContentType: object.ContentType,
		Data:        append([]byte(nil), object.Data...),
		Metadata:    metadata,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
}

func (r *mediaRecord) toDomain() core.MediaObject {
	if r == nil {
		return core.MediaObject{}
	}
	return core.MediaObject{
		ID:          r.ID,
		Resource:    r.Resource,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Data:        append([]byte(nil), r.Data...),
		Metadata:    copyAnyMap(r.Metadata),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
