package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/config"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/database"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the visitapp database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		migrationCmd("up", "Apply all pending migrations", func(ctx context.Context, m *database.Migrator) error {
			return m.Up(ctx)
		}),
		migrationCmd("down", "Roll back the most recent migration", func(ctx context.Context, m *database.Migrator) error {
			return m.Down(ctx)
		}),
		migrationCmd("status", "Print the state of every migration", func(ctx context.Context, m *database.Migrator) error {
			return m.Status(ctx)
		}),
		migrationCmd("version", "Print the current schema version", func(ctx context.Context, m *database.Migrator) error {
			version, err := m.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Println(version)
			return nil
		}),
	)

	return root
}

func migrationCmd(use, short string, run func(ctx context.Context, m *database.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log, err := logger.New(cfg.App.Env, cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			migrator := database.NewMigrator(pool, log)
			defer func() {
				if err := migrator.Close(); err != nil {
					log.Warn("close migrator", zap.Error(err))
				}
			}()

			return run(ctx, migrator)
		},
	}
}
