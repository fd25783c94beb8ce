package main

import (
	"github.com/spf13/cobra"

	"classifieds/internal/db"
)

func migrateCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := openDB()
			if err != nil {
				return err
			}
			if reset {
				log.Warn("dropping all tables")
				db.Reset(gormDB, log)
			}
			if err := db.Migrate(gormDB); err != nil {
				return err
			}
			log.Info("migrations completed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "drop every table before migrating")
	return cmd
}
