// Command assemble resolves an application configuration, runs the assembly
// and prints the installed modules and resources.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	assembly "github.com/goliatone/go-assembly"
	"github.com/goliatone/go-assembly/adapters/gocommand"
	assemblyprometheus "github.com/goliatone/go-assembly/adapters/prometheus"
	"github.com/goliatone/go-assembly/core"
	assemblymigrations "github.com/goliatone/go-assembly/migrations"
	sqlstore "github.com/goliatone/go-assembly/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"
)

type options struct {
	configPath    string
	appAbsPath    string
	provider      string
	driver        string
	dsn           string
	migrate       bool
	ensureIndexes bool
	logLevel      string
	logLevelSet   bool
	mediaCache    bool
	metrics       bool
}

type persistenceConfig struct {
	driver string
	server string
}

func (c persistenceConfig) GetDebug() bool                { return false }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-assembly" }

func main() {
	os.Exit(run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]))
}

func run(ctx context.Context, out io.Writer, errOut io.Writer, args []string) int {
	opts, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		printHelp(out)
		return 0
	}
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 2
	}

	logger, err := newWriterLogger(errOut, opts.logLevel)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 2
	}

	registry := prometheus.NewRegistry()
	recorder := assemblyprometheus.NewMetricsRecorder(registry)

	app, cleanup, err := assemble(ctx, opts, logger, recorder)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	printSummary(out, app)
	if opts.metrics {
		if err := printMetrics(out, registry); err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
	}
	return 0
}

func parseFlags(args []string) (options, error) {
	flagSet := flag.NewFlagSet("assemble", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	opts := options{}
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "YAML or JSONC configuration file")
	flagSet.StringVar(&opts.appAbsPath, "app-abspath", "", "Application root directory")
	flagSet.StringVar(&opts.provider, "storage", "", "Media storage class name")
	flagSet.StringVar(&opts.driver, "driver", "sqlite3", "Database driver (sqlite3 or postgres)")
	flagSet.StringVar(&opts.dsn, "dsn", "", "Database DSN for the SQL media and index stores")
	flagSet.BoolVar(&opts.migrate, "migrate", false, "Apply schema migrations before assembling")
	flagSet.BoolVar(&opts.ensureIndexes, "ensure-indexes", false, "Create the declared indexes")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "Log level")
	flagSet.BoolVar(&opts.mediaCache, "media-cache", false, "Cache SQL media reads")
	flagSet.BoolVar(&opts.metrics, "metrics", false, "Print assembly metrics")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	opts.logLevelSet = flagSet.Changed("log-level")
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(flagSet.Args(), " "))
	}
	switch opts.driver {
	case "sqlite3", "postgres":
	default:
		return options{}, fmt.Errorf("unsupported driver %q", opts.driver)
	}
	if opts.migrate && opts.dsn == "" {
		return options{}, fmt.Errorf("--migrate requires --dsn")
	}
	if opts.mediaCache && opts.dsn == "" {
		return options{}, fmt.Errorf("--media-cache requires --dsn")
	}
	return opts, nil
}

func assemble(ctx context.Context, opts options, logger *writerLogger, metrics core.MetricsRecorder) (*core.App, func(), error) {
	override := map[string]any{}
	if opts.logLevelSet {
		override[core.KeyLogLevel] = opts.logLevel
	}
	if opts.provider != "" {
		override[core.KeyMediaStorageProvider] = opts.provider
	}
	if opts.ensureIndexes {
		override[core.KeyEnsureIndexes] = true
	}

	assemblyOpts := []assembly.Option{
		assembly.WithLogger(logger),
		assembly.WithMetricsRecorder(metrics),
		assembly.WithAppAbsPath(opts.appAbsPath),
		assembly.WithCommandRegistry(gocommand.NewRegistryAdapter(nil)),
		assembly.WithModules(core.NewModuleCatalog(assembly.FacadeModule(nil))),
		assembly.WithConfig(override),
	}
	if opts.configPath != "" {
		assemblyOpts = append(assemblyOpts, assembly.WithConfigObject(core.FileObject(opts.configPath)))
	}

	var cleanup func()
	if opts.dsn != "" {
		client, err := openPersistence(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = client.Close() }
		var factoryOpts []sqlstore.FactoryOption
		if opts.mediaCache {
			cacheService, err := repositorycache.NewCacheService(repositorycache.DefaultConfig())
			if err != nil {
				return nil, cleanup, fmt.Errorf("media cache: %w", err)
			}
			factoryOpts = append(factoryOpts, sqlstore.WithMediaCache(cacheService))
		}
		sqlOpts, err := assembly.SQLOptions(client, factoryOpts...)
		if err != nil {
			return nil, cleanup, err
		}
		assemblyOpts = append(assemblyOpts, sqlOpts...)
	} else {
		registry, _, err := assembly.StorageClasses(nil)
		if err != nil {
			return nil, nil, err
		}
		assemblyOpts = append(assemblyOpts, assembly.WithStorageClasses(registry))
	}

	app, err := assembly.Assemble(ctx, assemblyOpts...)
	return app, cleanup, err
}

func openPersistence(ctx context.Context, opts options) (*persistence.Client, error) {
	sqlDB, err := sql.Open(opts.driver, opts.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	migrationDialect, err := assemblymigrations.DialectForDriver(opts.driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	dialect, err := assemblymigrations.BunDialect(migrationDialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	client, err := persistence.New(persistenceConfig{driver: opts.driver, server: opts.dsn}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("persistence client: %w", err)
	}
	if !opts.migrate {
		return client, nil
	}

	if err := assemblymigrations.Apply(ctx, client, migrationDialect); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func printSummary(out io.Writer, app *core.App) {
	fmt.Fprintln(out, "modules:")
	for _, name := range app.InstalledModules() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintln(out, "resources:")
	domain := app.Config().Domain()
	for _, name := range sortedResourceNames(domain) {
		source, _ := app.Resources().Source(name)
		fmt.Fprintf(out, "  %s -> %s\n", name, source)
	}
	fmt.Fprintf(out, "media storage: %T\n", app.MediaStorage())
}

func printMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	fmt.Fprintln(out, "metrics:")
	for _, family := range families {
		var total float64
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		fmt.Fprintf(out, "  %s %g\n", family.GetName(), total)
	}
	return nil
}

func sortedResourceNames(domain core.Domain) []string {
	names := make([]string, 0, len(domain))
	for name := range domain {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `Usage: assemble [flags]

Resolve configuration, install modules and print the assembled application.

Flags:
  -c, --config PATH       YAML or JSONC configuration file
      --app-abspath DIR   Application root directory
      --storage NAME      Media storage class name
      --driver NAME       Database driver: sqlite3 or postgres (default sqlite3)
      --dsn DSN           Database DSN for the SQL media and index stores
      --migrate           Apply schema migrations before assembling
      --ensure-indexes    Create the declared indexes
      --media-cache       Cache SQL media reads
      --metrics           Print assembly metrics
      --log-level LEVEL   trace, debug, info, warn, error (default info)`)
}
