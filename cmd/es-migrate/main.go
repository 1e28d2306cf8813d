package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/EvershineMarbles/EvershineBackend/internal/config"
	"github.com/EvershineMarbles/EvershineBackend/internal/log"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running migrate application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	migrator, err := db.NewMigrator(pgxPool, logger)
	if err != nil {
		return fmt.Errorf("error creating migrator: %w", err)
	}
	defer migrator.Close() //nolint:errcheck

	// usage: es-migrate [up|down|status], up by default
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	logger.InfoContext(ctx, "running database migration", slog.String("command", command))

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	default:
		return fmt.Errorf("unknown command %q, want up, down or status", command)
	}
	if err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	logger.InfoContext(ctx, "database migration finished", slog.String("command", command))

	return nil
}
