/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"safetrail/internal/bootstrap"
	"safetrail/internal/bootstrap/logging"
	"safetrail/internal/errs"
	"safetrail/internal/usecase/emergency"
)

// initDbCmd represents the initDb command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize database schema",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *emergency.Service) error {
		ctx := cmd.Context()
		logging.Info(ctx, "start init-db")

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		purged, err := svc.PurgeIntakeKeys(ctx)
		if err != nil {
			return errs.Wrap(err, "purge intake keys")
		}
		logging.Info(ctx, "init-db finished",
			slog.String("database_dsn", app.Config.Database.DSN),
			slog.Int64("purged_intake_keys", purged),
		)
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %s\n", app.Config.Database.DSN); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDbCmd)
}
