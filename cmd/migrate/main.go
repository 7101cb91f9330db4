package main

// Apply the companion schema:
//   go run ./cmd/migrate
// List the embedded migrations without touching the database:
//   go run ./cmd/migrate -list

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"companion-backend/internal/shared/config"
	"companion-backend/internal/shared/storage/db"
	"companion-backend/internal/shared/telemetry"
)

func main() {
	list := flag.Bool("list", false, "print embedded migrations and exit")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall migration timeout")
	flag.Parse()

	if *list {
		names, err := db.Migrations()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: config: %v\n", err)
		os.Exit(1)
	}
	if err := telemetry.Init(cfg.Env); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
	}
	defer telemetry.Sync()

	if err := run(cfg, *timeout); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		telemetry.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, timeout time.Duration) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return db.RunMigrations(ctx, sqlDB)
}
