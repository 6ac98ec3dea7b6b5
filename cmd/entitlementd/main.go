package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fluentive/entitlements/pkg/api"
	"github.com/fluentive/entitlements/pkg/catalog"
	"github.com/fluentive/entitlements/pkg/config"
	"github.com/fluentive/entitlements/pkg/engine"
	"github.com/fluentive/entitlements/pkg/httpserver"
	"github.com/fluentive/entitlements/pkg/ledger"
	"github.com/fluentive/entitlements/pkg/logger"
	"github.com/fluentive/entitlements/pkg/mongo"
	"github.com/fluentive/entitlements/pkg/pg"
	"github.com/fluentive/entitlements/pkg/plan"
	"github.com/fluentive/entitlements/pkg/redis"
)

type appConfig struct {
	ServiceName    string        `env:"SERVICE_NAME" envDefault:"entitlementd"`
	TiersPath      string        `env:"PLAN_TIERS_PATH" envDefault:"config/tiers.yaml"`
	IdentityHeader string        `env:"IDENTITY_HEADER" envDefault:"X-User-ID"`
	SnapshotMaxAge time.Duration `env:"CATALOG_SNAPSHOT_MAX_AGE" envDefault:"5m"`

	// LedgerBackend selects where usage counters live: "redis" or "postgres".
	LedgerBackend  string        `env:"LEDGER_BACKEND" envDefault:"redis"`
	SweepInterval  time.Duration `env:"LEDGER_SWEEP_INTERVAL" envDefault:"6h"`
	SweepRetention time.Duration `env:"LEDGER_SWEEP_RETENTION" envDefault:"336h"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		appCfg   appConfig
		logCfg   logger.Config
		pgCfg    pg.Config
		redisCfg redis.Config
		mongoCfg mongo.Config
		httpCfg  httpserver.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&logCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&httpCfg)

	log := logger.New(logCfg, logger.WithService(appCfg.ServiceName))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		fatal(log, "postgres connection failed", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		fatal(log, "schema migration failed", err)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		fatal(log, "redis connection failed", err)
	}
	defer redisClient.Close()

	mongoClient, err := mongo.Connect(ctx, mongoCfg)
	if err != nil {
		fatal(log, "mongodb connection failed", err)
	}
	defer mongoClient.Disconnect(context.Background())

	tiers, err := plan.YAMLSource{Path: appCfg.TiersPath}.Load(ctx)
	if err != nil {
		fatal(log, "tier hierarchy load failed", err)
	}

	features := catalog.NewMongoStore(mongoClient.Database(mongoCfg.Database))
	entitlements := plan.NewPGStore(pool)

	var usage ledger.Store
	switch appCfg.LedgerBackend {
	case "postgres":
		usage = ledger.NewPGStore(pool)
	default:
		usage = ledger.NewRedisStore(redisClient, ledger.WithRetention(appCfg.SweepRetention))
	}

	decider := engine.New(features, tiers, entitlements, usage, engine.WithLogger(log))

	router := api.NewRouter(api.Deps{
		Engine:         decider,
		Catalog:        features,
		Plans:          tiers,
		Entitlements:   entitlements,
		Identity:       api.HeaderIdentity(appCfg.IdentityHeader),
		SnapshotMaxAge: appCfg.SnapshotMaxAge,
		HealthProbes: []func(context.Context) error{
			pg.Healthcheck(pool),
			redis.Healthcheck(redisClient),
			mongo.Healthcheck(mongoClient),
		},
		Log: log,
	})

	go sweepLoop(ctx, usage, appCfg.SweepInterval, appCfg.SweepRetention, log)

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, router); err != nil {
		fatal(log, "http server failed", err)
	}
}

// sweepLoop periodically drops usage counters from closed quota periods. On
// backends with native expiry the sweep is a no-op and only the log line
// differs.
func sweepLoop(ctx context.Context, usage ledger.Store, interval, retention time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			removed, err := usage.Sweep(ctx, cutoff)
			if err != nil {
				log.ErrorContext(ctx, "usage sweep failed", slog.Any("error", err))
				continue
			}
			log.InfoContext(ctx, "usage sweep complete",
				slog.Int("removed", removed),
				slog.Time("cutoff", cutoff),
			)
		}
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
