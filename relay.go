package signalrelay

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-signal-relay/core"
	"github.com/goliatone/go-signal-relay/health"
	"github.com/goliatone/go-signal-relay/ingest"
	relaymigrations "github.com/goliatone/go-signal-relay/migrations"
	"github.com/goliatone/go-signal-relay/providers/sigmax"
	"github.com/goliatone/go-signal-relay/source"
	sqlstore "github.com/goliatone/go-signal-relay/store/sql"
)

// DatabaseConfig carries connection settings for the delivery log database.
// It satisfies the go-persistence-bun config contract.
type DatabaseConfig struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

func (c DatabaseConfig) GetDebug() bool {
	return c.Debug
}

func (c DatabaseConfig) GetDriver() string {
	if strings.TrimSpace(c.Driver) == "" {
		return "sqlite3"
	}
	return strings.TrimSpace(c.Driver)
}

func (c DatabaseConfig) GetServer() string {
	return strings.TrimSpace(c.DSN)
}

func (c DatabaseConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout > 0 {
		return c.PingTimeout
	}
	return 5 * time.Second
}

func (c DatabaseConfig) GetOtelIdentifier() string {
	return "go-signal-relay"
}

// OpenDatabase opens the delivery log database, registers the embedded
// migrations for the driver's dialect, and runs them.
func OpenDatabase(ctx context.Context, cfg DatabaseConfig) (*persistence.Client, error) {
	driver := cfg.GetDriver()

	var dialect schema.Dialect
	var migrationDialect string
	switch driver {
	case "postgres":
		dialect = pgdialect.New()
		migrationDialect = relaymigrations.DialectPostgres
	case "sqlite3":
		dialect = sqlitedialect.New()
		migrationDialect = relaymigrations.DialectSQLite
	default:
		return nil, fmt.Errorf("signalrelay: unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("signalrelay: open database: %w", err)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("signalrelay: persistence client: %w", err)
	}

	_, err = relaymigrations.Register(ctx, func(_ context.Context, d string, _ string, fsys fs.FS) error {
		if d != migrationDialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, relaymigrations.WithValidationTargets(migrationDialect))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("signalrelay: migrate: %w", err)
	}

	return client, nil
}

// Relay bundles the wired components of one deployment: storage, handler
// registry, upstream source, ingestion runner, and health checker.
type Relay struct {
	Config   core.Config
	Client   *persistence.Client
	Factory  *sqlstore.RepositoryFactory
	Registry *core.HandlerRegistry
	Source   *source.Client
	Runner   *ingest.Runner
	Health   *health.Checker
	Logger   core.Logger
}

// New wires a complete relay: database plus migrations, the delivery log
// store, the handler registry with the CityControl adapter registered, the
// upstream signals client, and the ingestion runner over all of them.
func New(ctx context.Context, cfg core.Config, dbCfg DatabaseConfig, env core.Env, logger core.Logger) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = glog.Ensure(logger)

	client, err := OpenDatabase(ctx, dbCfg)
	if err != nil {
		return nil, err
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	registry := core.NewHandlerRegistry(logger)
	sigmaxClient := sigmax.NewClient(nil, env, logger)
	if err := registry.Register(sigmax.NewHandler(sigmaxClient, nil, logger)); err != nil {
		_ = client.Close()
		return nil, err
	}

	sourceClient := source.NewClient(nil, env, cfg, logger)
	runner := ingest.NewRunner(sourceClient, factory.DeliveryLogStore(), registry, logger)

	guard := core.NewConfigGuard(env, cfg.ActiveServices)
	checker := health.NewChecker(factory.DB(), &guard, factory.DeliveryLogStore(), logger)

	return &Relay{
		Config:   cfg,
		Client:   client,
		Factory:  factory,
		Registry: registry,
		Source:   sourceClient,
		Runner:   runner,
		Health:   checker,
		Logger:   logger,
	}, nil
}

// NewFromRawConfig resolves configuration through the layered pipeline
// (defaults, then the raw loader, then runtime overrides) before wiring the
// relay.
func NewFromRawConfig(
	ctx context.Context,
	loader core.RawConfigLoader,
	runtime core.Config,
	dbCfg DatabaseConfig,
	env core.Env,
	logger core.Logger,
) (*Relay, error) {
	cfg, err := core.ResolveConfig(ctx, loader, runtime)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, dbCfg, env, logger)
}

// Run executes one ingestion pass.
func (r *Relay) Run(ctx context.Context) (ingest.RunReport, error) {
	if r == nil || r.Runner == nil {
		return ingest.RunReport{}, fmt.Errorf("signalrelay: relay is not initialized")
	}
	return r.Runner.Run(ctx)
}

func (r *Relay) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
