package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"podreseller_back_end/internal/config"
	"podreseller_back_end/internal/database"
	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/repository"
	"podreseller_back_end/internal/worker"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes the API relies on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMongo(cmd.Context(), func(ctx context.Context, cfg config.Config, m *database.Mongo) error {
			if err := database.EnsureIndexes(ctx, m.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ready")
			return nil
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one pass over pending cart cleanups and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMongo(cmd.Context(), func(ctx context.Context, cfg config.Config, m *database.Mongo) error {
			payments := repository.NewPaymentRepository(m, cfg.MongoTransactions)
			res, err := worker.NewCleanupWorker(payments, cfg.CleanupInterval, nil, nil).RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pending=%d completed=%d failed=%d\n", res.Pending, res.Completed, res.Failed)
			return nil
		})
	},
}

// withMongo needs only the database settings, so the API secrets are not
// validated here.
func withMongo(parent context.Context, fn func(context.Context, config.Config, *database.Mongo) error) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.Load()
	logger.New(cfg.AppEnv)

	ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
	defer cancel()

	m, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Disconnect(context.Background())

	return fn(ctx, cfg, m)
}
