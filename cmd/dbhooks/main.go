package main

import (
	"DBHooks/internal/shared/config"
	"DBHooks/internal/shared/logger"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	baseLogger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dbhooks",
	Short: "Inspect and exercise the database event hooks.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		baseLogger = logger.New(cfg.AppEnv == "dev", cfg.LogLevel)
		baseLogger.Debug().
			Str("app_env", cfg.AppEnv).
			Str("db_driver", cfg.Database.Driver).
			Int("pool_size", cfg.Pool.Size).
			Msg("Configuration loaded")
		return nil
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}
