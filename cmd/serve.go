package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkratochvil/facemark/internal/attendance"
	"github.com/jkratochvil/facemark/internal/config"
	"github.com/jkratochvil/facemark/internal/enroll"
	"github.com/jkratochvil/facemark/internal/store/postgres"
	"github.com/jkratochvil/facemark/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the Facemark HTTP API.
The API accepts image uploads for identification, manages the roster and
timetable and serves the attendance ledger.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	repo := postgres.NewRepo(pool)

	pipe, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	if pipe.ref.Snapshot() == nil {
		fmt.Printf("No trained model at %s, identification disabled until first training\n", cfg.Dataset.ModelPath)
	}

	resolver := attendance.NewResolver(repo, repo, repo, cfg.Attendance)
	enroller := enroll.NewEnroller(pipe.client, cfg.Dataset.Dir)

	server := web.NewServer(mustGetString(cmd, "host"), mustGetInt(cmd, "port"), web.Deps{
		Identifier: pipe.identifier(cfg, repo),
		Trainer:    pipe.trainer,
		Enroller:   enroller,
		Resolver:   resolver,
		Repo:       repo,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		fmt.Printf("Received %s, shutting down\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
