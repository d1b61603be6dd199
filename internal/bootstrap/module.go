package bootstrap

import (
	"context"
	"log/slog"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"safetrail/internal/bootstrap/config"
	"safetrail/internal/bootstrap/database"
	"safetrail/internal/bootstrap/logging"
	"safetrail/internal/infrastructure/cache"
	"safetrail/internal/infrastructure/metrics"
	"safetrail/internal/infrastructure/persistence/memory"
	sqliterepo "safetrail/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "safetrail/internal/infrastructure/persistence/sqlite/uow"
	"safetrail/internal/ports"
	"safetrail/internal/usecase/emergency"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(provideStore),
	fx.Provide(metrics.New),
	fx.Provide(provideService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

type configResult struct {
	fx.Out

	Config config.Config
	Viper  *viper.Viper
}

func provideConfig(p configParams) (configResult, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	cfg, v, err := config.Load(ctx, p.ConfigFile)
	if err != nil {
		return configResult{}, err
	}
	if _, err := logging.Configure(nil, cfg.Log.Level, cfg.Log.Format); err != nil {
		return configResult{}, err
	}
	return configResult{Config: cfg, Viper: v}, nil
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, v *viper.Viper, db *gorm.DB, m *metrics.Metrics) *App {
	return &App{
		Config:  cfg,
		Viper:   v,
		DB:      db,
		Metrics: m,
	}
}

type storeResult struct {
	fx.Out

	Repo  ports.EventRepository
	UoW   ports.UnitOfWork
	Cache ports.Cache
}

// provideStore picks the record store for the configured driver.
func provideStore(db *gorm.DB) storeResult {
	if db == nil {
		return storeResult{
			Repo:  memory.NewEventStore(),
			UoW:   memory.NewShardedUnitOfWork(),
			Cache: memory.NewCache(),
		}
	}
	return storeResult{
		Repo:  sqliterepo.NewEventRepository(db),
		UoW:   sqliteuow.NewUnitOfWork(db),
		Cache: cache.NewSQLiteCache(db),
	}
}

func provideService(cfg config.Config, repo ports.EventRepository, uow ports.UnitOfWork, intakeKeys ports.Cache) *emergency.Service {
	return emergency.NewService(repo, uow, emergency.WithIdempotentIntake(intakeKeys, cfg.Intake.IdempotencyTTL))
}
