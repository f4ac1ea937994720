// Command conference runs the conference session scheduling API and its
// maintenance tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/conference-scheduler/internal/config"
	"github.com/example/conference-scheduler/internal/logging"
)

const (
	appName = "conference"
	Version = "0.3.0"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Conference session scheduling API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), out)
		},
	}
	cmd.SetOut(out)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), out)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd.Context(), out)
			},
		},
		seedCmd(out),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func seedCmd(out io.Writer) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load faculty, halls and sessions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), out, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "Seed file path")
	return cmd
}

func loadEnvironment(out io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.New(out, "json", "info")
		logger.Error("failed to load configuration", "error", err)
		return config.Config{}, nil, err
	}
	logger := logging.New(out, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runServe(parent context.Context, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadEnvironment(out)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise application", "error", err)
		return err
	}
	defer a.Close(context.Background())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("conference API listening", "addr", server.Addr, "db_driver", cfg.DBDriver, "version", Version)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}

func runMigrate(parent context.Context, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, logger, err := loadEnvironment(out)
	if err != nil {
		return err
	}
	if cfg.DBDriver == config.DriverMemory {
		logger.Info("memory store needs no migrations")
		return nil
	}

	store, err := openSQLStore(parent, cfg)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer store.Close()

	status, err := store.Migrate(parent, logger)
	if err != nil {
		logger.Error("failed to apply migrations", "error", err)
		return err
	}
	fmt.Fprintf(out, "schema at version %d\n", status.Version)
	return nil
}

func runSeed(parent context.Context, out io.Writer, path string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, logger, err := loadEnvironment(out)
	if err != nil {
		return err
	}

	file, err := readSeedFile(path)
	if err != nil {
		logger.Error("failed to read seed file", "path", path, "error", err)
		return err
	}

	a, err := newApp(parent, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise application", "error", err)
		return err
	}
	defer a.Close(context.Background())

	summary, err := applySeed(parent, a.services, file)
	if err != nil {
		logger.Error("failed to seed", "path", path, "error", err)
		return err
	}
	fmt.Fprintf(out, "seeded %d faculty, %d halls, %d sessions\n", summary.Faculty, summary.Halls, summary.Sessions)
	return nil
}
