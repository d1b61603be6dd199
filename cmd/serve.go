package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"safetrail/internal/bootstrap"
	"safetrail/internal/bootstrap/logging"
	"safetrail/internal/errs"
	httptransport "safetrail/internal/transport/http"
	"safetrail/internal/usecase/emergency"
)

const (
	shutdownTimeout     = 10 * time.Second
	intakeSweepInterval = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the event API over HTTP",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *emergency.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("component", "cmd.serve"))

		addr := app.Config.HTTP.Addr
		if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
			addr = flagAddr
		}

		watchLogLevel(ctx, app.Viper)

		srv := &http.Server{
			Addr:              addr,
			Handler:           httptransport.NewRouter(httptransport.New(svc, app.Metrics), app.Metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		go sweepIntakeKeys(ctx, svc, intakeSweepInterval)

		errCh := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server listening", slog.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return errs.Wrap(err, "listen and serve")
		case <-ctx.Done():
		}

		logging.Info(ctx, "shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		return nil
	}),
}

// sweepIntakeKeys purges expired idempotency keys at start and then every
// interval until ctx is done.
func sweepIntakeKeys(ctx context.Context, svc *emergency.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		purged, err := svc.PurgeIntakeKeys(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			logging.Warn(ctx, "purge intake keys failed", slog.Any("err", errs.Loggable(err)))
		case purged > 0:
			logging.Info(ctx, "purged expired intake keys", slog.Int64("count", purged))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// watchLogLevel re-applies log.level whenever the config file is written.
// Other settings need a restart.
func watchLogLevel(ctx context.Context, v *viper.Viper) {
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := v.GetString("log.level")
		if err := logging.SetLevel(level); err != nil {
			logging.Warn(ctx, "ignoring config change", slog.String("file", e.Name), slog.Any("err", errs.Loggable(err)))
			return
		}
		logging.Info(ctx, "log level reloaded", slog.String("file", e.Name), slog.String("level", level))
	})
	v.WatchConfig()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides http.addr)")
}
