/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"safetrail/internal/bootstrap/logging"
	"safetrail/internal/errs"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "safetrail",
	Short:        "Emergency event lifecycle and audit timeline",
	Long:         "Track emergency events from initiation to resolution, with an append-only timeline. Backed by SQLite (no cgo) or an in-memory store.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	if _, err := logging.Configure(rootCmd.ErrOrStderr(), "info", "text"); err != nil {
		return errs.Wrap(err, "configure logging")
	}
	ctx = logging.WithAttrs(ctx, slog.String("app", "safetrail"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default: ./configs/config.yaml or ./config.yaml when present)")
}
