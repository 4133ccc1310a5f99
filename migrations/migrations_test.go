package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	assembly "github.com/goliatone/go-assembly"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect"
)

func TestLoadAll_ReturnsPostgresAndSQLite(t *testing.T) {
	sets, err := LoadAll()
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	var dialects []string
	for _, set := range sets {
		dialects = append(dialects, set.Dialect)
		if diff := cmp.Diff([]string{"00001_assembly_media_objects.up.sql"}, set.Up); diff != "" {
			t.Fatalf("%s up files mismatch (-want +got):\n%s", set.Dialect, diff)
		}
	}
	if diff := cmp.Diff([]string{DialectPostgres, DialectSQLite}, dialects); diff != "" {
		t.Fatalf("dialects mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ResolvesCustomTree(t *testing.T) {
	tree := fstest.MapFS{
		"00002_b.up.sql":          {Data: []byte("CREATE TABLE b (id TEXT);")},
		"00002_b.down.sql":        {Data: []byte("DROP TABLE b;")},
		"00001_a.up.sql":          {Data: []byte("CREATE TABLE a (id TEXT);")},
		"00001_a.down.sql":        {Data: []byte("DROP TABLE a;")},
		"sqlite/00001_a.up.sql":   {Data: []byte("CREATE TABLE a (id TEXT);")},
		"sqlite/00001_a.down.sql": {Data: []byte("DROP TABLE a;")},
	}
	set, err := Load(" Postgres ", WithTree(tree))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Dialect != DialectPostgres {
		t.Fatalf("expected normalized dialect, got %q", set.Dialect)
	}
	if diff := cmp.Diff([]string{"00001_a.up.sql", "00002_b.up.sql"}, set.Up); diff != "" {
		t.Fatalf("up files mismatch (-want +got):\n%s", diff)
	}

	set, err = Load(DialectSQLite, WithTree(tree))
	if err != nil {
		t.Fatalf("load sqlite: %v", err)
	}
	if diff := cmp.Diff([]string{"00001_a.up.sql"}, set.Up); diff != "" {
		t.Fatalf("sqlite up files mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_RejectsIncompleteTrees(t *testing.T) {
	cases := []struct {
		name    string
		dialect string
		tree    fstest.MapFS
	}{
		{name: "no up files", dialect: DialectSQLite, tree: fstest.MapFS{
			"data/sql/migrations/00001_x.down.sql":        {Data: []byte("DROP TABLE x;")},
			"data/sql/migrations/sqlite/00001_x.down.sql": {Data: []byte("DROP TABLE x;")},
		}},
		{name: "missing down file", dialect: DialectPostgres, tree: fstest.MapFS{
			"data/sql/migrations/00001_x.up.sql": {Data: []byte("CREATE TABLE x (id TEXT);")},
		}},
		{name: "unknown dialect", dialect: "oracle", tree: fstest.MapFS{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(tc.dialect, WithTree(tc.tree)); err == nil {
				t.Fatalf("expected load to fail")
			}
		})
	}
}

func TestMediaObjectsMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := assembly.GetMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_assembly_media_objects.up.sql",
		"data/sql/migrations/00001_assembly_media_objects.down.sql",
		"data/sql/migrations/sqlite/00001_assembly_media_objects.up.sql",
		"data/sql/migrations/sqlite/00001_assembly_media_objects.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteMediaObjectsMigration_ApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", "file:migrations-media-objects?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := fs.Sub(assembly.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_assembly_media_objects.up.sql"); err != nil {
		t.Fatalf("apply up migration: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO assembly_media_objects (id, resource) VALUES (?, ?)", "m1", "archive",
	); err != nil {
		t.Fatalf("insert media row: %v", err)
	}
	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_assembly_media_objects.down.sql"); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'assembly_media_objects'",
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected media table to be dropped")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}

func TestDialectForDriver(t *testing.T) {
	cases := map[string]string{
		"sqlite3":  DialectSQLite,
		"SQLite":   DialectSQLite,
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
	}
	for driver, want := range cases {
		got, err := DialectForDriver(driver)
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if got != want {
			t.Fatalf("expected %q for driver %q, got %q", want, driver, got)
		}
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}
}

func TestBunDialect(t *testing.T) {
	cases := map[string]dialect.Name{
		DialectPostgres: dialect.PG,
		DialectSQLite:   dialect.SQLite,
	}
	for name, want := range cases {
		got, err := BunDialect(name)
		if err != nil {
			t.Fatalf("dialect %q: %v", name, err)
		}
		if got.Name() != want {
			t.Fatalf("expected %v for %q, got %v", want, name, got.Name())
		}
	}
	if _, err := BunDialect("mysql"); err == nil {
		t.Fatalf("expected unknown dialect to fail")
	}
}

type recordingClient struct {
	registered []fs.FS
	migrated   int
	err        error
}

func (c *recordingClient) RegisterSQLMigrations(migrations ...fs.FS) *persistence.Migrations {
	c.registered = append(c.registered, migrations...)
	return nil
}

func (c *recordingClient) Migrate(context.Context) error {
	c.migrated++
	return c.err
}

func TestApply_RegistersOnlyRequestedDialect(t *testing.T) {
	client := &recordingClient{}
	if err := Apply(context.Background(), client, DialectSQLite); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(client.registered) != 1 || client.migrated != 1 {
		t.Fatalf("expected one registration and one migrate, got %d and %d", len(client.registered), client.migrated)
	}
	if _, err := fs.Stat(client.registered[0], "00001_assembly_media_objects.up.sql"); err != nil {
		t.Fatalf("expected sqlite migration in registered filesystem: %v", err)
	}
	if _, err := fs.Stat(client.registered[0], "sqlite"); err == nil {
		t.Fatalf("expected sqlite filesystem not to nest the dialect directory")
	}
}

func TestApply_Failures(t *testing.T) {
	ctx := context.Background()
	if err := Apply(ctx, nil, DialectSQLite); err == nil {
		t.Fatalf("expected missing client to fail")
	}
	client := &recordingClient{}
	if err := Apply(ctx, client, "oracle"); err == nil {
		t.Fatalf("expected unknown dialect to fail")
	}
	if client.migrated != 0 || len(client.registered) != 0 {
		t.Fatalf("expected unknown dialect not to touch the client")
	}
	boom := errors.New("boom")
	err := Apply(ctx, &recordingClient{err: boom}, DialectPostgres)
	if !errors.Is(err, boom) {
		t.Fatalf("expected migrate error to propagate, got %v", err)
	}
}
