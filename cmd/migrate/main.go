package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"mekaniku/internal/config"
	"mekaniku/internal/database"
	"mekaniku/internal/database/migrations"
	"mekaniku/internal/logger"
)

func main() {
	action := flag.String("action", "up", "up | down | to | reset")
	version := flag.Uint("version", 0, "target version for -action to")
	seed := flag.Bool("seed", false, "also apply the demo-data migrations")
	dir := flag.String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	flag.Parse()

	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	if *dir != "" {
		cfg.Database.MigrationsDir = *dir
	}

	ctx := context.Background()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN())))
	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to database: %v", err))
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	runner := migrations.NewRunner(db, migrations.MigrateOptions{
		MigrationsDir: cfg.Database.MigrationsDir,
		AutoMigrate:   true,
		SeedData:      *seed,
	}, log)
	defer runner.Close()

	switch *action {
	case "up":
		err = runner.Run()
	case "down":
		err = runner.Down()
	case "to":
		err = runner.To(*version)
	case "reset":
		err = reset(ctx, db, log)
		if err == nil {
			err = runner.Run()
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	log.Info("DATABASE", fmt.Sprintf("✅ migrate %s done", *action))
}

// reset drops every application table and the migration bookkeeping so the
// next run starts from an empty database.
func reset(ctx context.Context, db *bun.DB, log *logger.Logger) error {
	log.Warn("DATABASE", "Dropping all tables")
	if err := database.DropSchema(ctx, db); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS schema_migrations"); err != nil {
		return fmt.Errorf("drop schema_migrations: %w", err)
	}
	return nil
}
