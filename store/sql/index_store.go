package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-assembly/core"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const (
	pqUniqueViolation = pq.ErrorCode("23505")
	pqUndefinedTable  = pq.ErrorCode("42P01")
)

// IndexStore creates the configured indexes as SQL indexes on the table
// backing each resource.
type IndexStore struct {
	db *bun.DB
}

func NewIndexStore(db *bun.DB) (*IndexStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &IndexStore{db: db}, nil
}

func (s *IndexStore) CreateIndex(ctx context.Context, req core.IndexRequest) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: index store is not configured")
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return fmt.Errorf("%w: resource %q has no source table", core.ErrUnknownResource, req.Resource)
	}
	if len(req.Keys) == 0 {
		return fmt.Errorf("sqlstore: index %q has no keys", req.Name)
	}

	query := s.db.NewCreateIndex().
		Table(source).
		Index(indexName(source, req.Name)).
		IfNotExists()
	for _, key := range req.Keys {
		field := strings.TrimSpace(key.Field)
		if field == "" {
			return fmt.Errorf("sqlstore: index %q has an empty key", req.Name)
		}
		if key.Descending {
			query = query.ColumnExpr("? DESC", bun.Ident(field))
			continue
		}
		query = query.Column(field)
	}
	if req.Options.Unique {
		query = query.Unique()
	}
	if where := strings.TrimSpace(req.Options.Where); where != "" {
		query = query.Where(where)
	}
	if req.Options.IsBackground() && s.db.Dialect().Name() == dialect.PG {
		query = query.Concurrently()
	}

	if _, err := query.Exec(ctx); err != nil {
		return classifyIndexError(req, err)
	}
	return nil
}

func indexName(source, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return source + "_idx"
	}
	if strings.HasPrefix(name, source+"_") {
		return name
	}
	return source + "_" + name
}

func classifyIndexError(req core.IndexRequest, err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: index %q on %s: %v", core.ErrDuplicateKey, req.Name, req.Source, err)
	case isUndefinedTable(err):
		return fmt.Errorf("%w: resource %q: %v", core.ErrUnknownResource, req.Resource, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

func isUndefinedTable(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), "no such table")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUndefinedTable
	}
	return false
}
