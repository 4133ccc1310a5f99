// Package migrations resolves the embedded SQL migration sets per database
// dialect and runs them through a go-persistence-bun client.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	assembly "github.com/goliatone/go-assembly"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const treeRoot = "data/sql/migrations"

type dialectEntry struct {
	dir     string
	drivers []string
	bun     func() schema.Dialect
}

// Postgres files live at the tree root, sqlite variants in sqlite/.
var dialects = map[string]dialectEntry{
	DialectPostgres: {
		dir:     ".",
		drivers: []string{"postgres", "postgresql", "pgx"},
		bun:     func() schema.Dialect { return pgdialect.New() },
	},
	DialectSQLite: {
		dir:     "sqlite",
		drivers: []string{"sqlite", "sqlite3"},
		bun:     func() schema.Dialect { return sqlitedialect.New() },
	},
}

// Set is the migration filesystem of one dialect and its up files in
// apply order.
type Set struct {
	Dialect string
	FS      fs.FS
	Up      []string
}

// Client is the part of a persistence client that runs SQL migrations.
type Client interface {
	RegisterSQLMigrations(migrations ...fs.FS) *persistence.Migrations
	Migrate(ctx context.Context) error
}

type loadConfig struct {
	tree fs.FS
}

type Option func(*loadConfig)

// WithTree reads migrations from tree instead of the embedded files. The
// tree may hold data/sql/migrations or be that directory itself.
func WithTree(tree fs.FS) Option {
	return func(c *loadConfig) {
		if tree != nil {
			c.tree = tree
		}
	}
}

// DialectForDriver maps a database/sql driver name to its migration dialect.
func DialectForDriver(driver string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(driver))
	for dialect, entry := range dialects {
		for _, candidate := range entry.drivers {
			if candidate == name {
				return dialect, nil
			}
		}
	}
	return "", fmt.Errorf("migrations: no dialect for driver %q", driver)
}

// BunDialect returns the bun schema dialect used to open a client for
// dialect.
func BunDialect(dialect string) (schema.Dialect, error) {
	entry, err := lookup(dialect)
	if err != nil {
		return nil, err
	}
	return entry.bun(), nil
}

// Load resolves the migration set of dialect. Every up file needs a
// matching down file.
func Load(dialect string, opts ...Option) (Set, error) {
	name := strings.ToLower(strings.TrimSpace(dialect))
	entry, err := lookup(name)
	if err != nil {
		return Set{}, err
	}
	cfg := loadConfig{tree: assembly.GetMigrationsFS()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	root := cfg.tree
	if _, statErr := fs.Stat(root, treeRoot); statErr == nil {
		if root, err = fs.Sub(root, treeRoot); err != nil {
			return Set{}, fmt.Errorf("migrations: %w", err)
		}
	}
	fsys := root
	if entry.dir != "." {
		if fsys, err = fs.Sub(root, entry.dir); err != nil {
			return Set{}, fmt.Errorf("migrations: %s directory: %w", name, err)
		}
	}

	up, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return Set{}, fmt.Errorf("migrations: list %s: %w", name, err)
	}
	if len(up) == 0 {
		return Set{}, fmt.Errorf("migrations: no %s up migrations", name)
	}
	sort.Strings(up)
	for _, file := range up {
		down := strings.TrimSuffix(file, ".up.sql") + ".down.sql"
		if _, statErr := fs.Stat(fsys, down); statErr != nil {
			return Set{}, fmt.Errorf("migrations: %s %s has no %s", name, file, down)
		}
	}
	return Set{Dialect: name, FS: fsys, Up: up}, nil
}

// LoadAll resolves every known dialect, ordered by dialect name.
func LoadAll(opts ...Option) ([]Set, error) {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]Set, 0, len(names))
	for _, name := range names {
		set, err := Load(name, opts...)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// Apply registers the dialect set with client and migrates once.
func Apply(ctx context.Context, client Client, dialect string, opts ...Option) error {
	if client == nil {
		return fmt.Errorf("migrations: client is required")
	}
	set, err := Load(dialect, opts...)
	if err != nil {
		return err
	}
	client.RegisterSQLMigrations(set.FS)
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: apply %s: %w", set.Dialect, err)
	}
	return nil
}

func lookup(dialect string) (dialectEntry, error) {
	entry, ok := dialects[strings.ToLower(strings.TrimSpace(dialect))]
	if !ok {
		return dialectEntry{}, fmt.Errorf("migrations: unknown dialect %q", dialect)
	}
	return entry, nil
}
