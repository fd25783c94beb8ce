package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"classifieds/internal/repository"
)

func purgeSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete sessions that have already expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := openDB()
			if err != nil {
				return err
			}
			purged, err := purgeExpiredSessions(cmd.Context(), repository.NewSessionRepository(gormDB), time.Now().UTC())
			if err != nil {
				return err
			}
			log.Info("expired sessions purged", slog.Int64("count", purged))
			return nil
		},
	}
}

func purgeExpiredSessions(ctx context.Context, sessions repository.SessionRepository, now time.Time) (int64, error) {
	purged, err := sessions.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return purged, nil
}
