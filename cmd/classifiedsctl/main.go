package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"classifieds/internal/config"
	"classifieds/internal/db"
	"classifieds/internal/logger"
)

var (
	cfg *config.Config
	log *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "classifiedsctl",
		Short:         "Operator tasks for the classifieds backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
			log = logger.Setup(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(purgeSessionsCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*gorm.DB, error) {
	gormDB, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return gormDB, nil
}
