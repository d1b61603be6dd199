package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"safetrail/internal/bootstrap/config"
	"safetrail/internal/bootstrap/logging"
	"safetrail/internal/errs"
	"safetrail/internal/infrastructure/metrics"
	"safetrail/internal/infrastructure/persistence/sqlite/model"
)

// App carries the loaded configuration and shared infrastructure. DB is nil
// when the memory driver is configured.
type App struct {
	Config  config.Config
	Viper   *viper.Viper
	DB      *gorm.DB
	Metrics *metrics.Metrics
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	if a.DB == nil {
		logging.Debug(logCtx, "memory driver has no schema")
		return nil
	}

	logging.Debug(logCtx, "start schema migration")
	if err := a.DB.WithContext(ctx).AutoMigrate(
		&model.Event{},
		&model.TimelineEntry{},
		&model.CacheEntry{},
	); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Debug(logCtx, "schema migration completed")
	return nil
}

func (a *App) Close(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if a.DB == nil {
		return nil
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}

	if err := sqlDB.Close(); err != nil {
		return errs.Wrap(err, "close sql db")
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")), "database connection closed")
	return nil
}
