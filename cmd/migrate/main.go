package main

import (
	"fmt"
	"os"

	"github.com/frostdev-ops/kpi-backend-go/internal/config"
	"github.com/frostdev-ops/kpi-backend-go/internal/database"
	"github.com/frostdev-ops/kpi-backend-go/pkg/logger"
	"github.com/spf13/pflag"
)

func main() {
	dbPath := pflag.StringP("database", "d", "./data/kpi.db", "path to the SQLite database")
	migrationsPath := pflag.StringP("path", "p", "", "migrations directory (default: migrations embedded in the binary)")
	steps := pflag.IntP("steps", "n", 0, "number of migrations to roll back with down (default: all)")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [flags] up|down|version")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	log := logger.New(logger.Options{Format: "text"})

	db, err := database.Initialize(config.DatabaseConfig{Path: *dbPath, MaxConnections: 1})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch command := pflag.Arg(0); command {
	case "up":
		if err := database.Migrate(db, *migrationsPath); err != nil {
			log.Fatalf("An error occurred while migrating up: %v", err)
		}
		log.Info("Migrations applied successfully.")
	case "down":
		if err := database.MigrateDown(db, *migrationsPath, *steps); err != nil {
			log.Fatalf("An error occurred while migrating down: %v", err)
		}
		log.Info("Migrations rolled back successfully.")
	case "version":
		version, dirty, err := database.MigrationVersion(db, *migrationsPath)
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		log.WithField("dirty", dirty).Infof("Schema version %d", version)
	default:
		log.Fatalf("Unknown command: %s. Use `up`, `down` or `version`.", command)
	}
}
