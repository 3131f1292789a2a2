package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thriftline/marketplace/internal/app/runtime"
	"github.com/thriftline/marketplace/internal/platform/migrations"
	"github.com/thriftline/marketplace/internal/seed"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := runtime.NewApplication(ctx, cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			runErr := application.Run(ctx)
			log.Info("shutting down")
			if err := application.Shutdown(context.Background()); err != nil {
				log.WithError(err).Error("shutdown incomplete")
			}
			return runErr
		},
	}
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	run := func(name string, fn func(string) error) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: fmt.Sprintf("Apply %s migrations", name),
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				cfg, log, err := loadConfig()
				if err != nil {
					return err
				}
				if cfg.Database.DSN == "" {
					return fmt.Errorf("DATABASE_URL is required")
				}
				if err := fn(cfg.Database.DSN); err != nil {
					return fmt.Errorf("migrate %s: %w", name, err)
				}
				log.WithField("direction", name).Info("migrations applied")
				return nil
			},
		}
	}
	cmd.AddCommand(run("up", migrations.Up), run("down", migrations.Down))
	return cmd
}

func newSeedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and listings from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixtures, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return fmt.Errorf("DATABASE_URL is required; in-memory data would be discarded on exit")
			}
			application, err := runtime.NewApplication(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			defer application.Close()

			services := application.App()
			res, err := seed.Apply(cmd.Context(), fixtures, services.Accounts, services.Catalog, log.Component("seed"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users created: %d, skipped: %d, products created: %d\n",
				res.UsersCreated, res.UsersSkipped, res.ProductsCreated)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fixtures.yaml", "fixture file")
	return cmd
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-sessions",
		Short: "Delete expired sessions once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			application, err := runtime.NewApplication(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			defer application.Close()

			removed := application.App().Sweeper.RunOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "expired sessions removed: %d\n", removed)
			return nil
		},
	}
}
