package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/restoraworks/reportflow/config"
	"github.com/restoraworks/reportflow/internal/migration"
)

// runMigrate dispatches the migrate subcommands.
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "up":
		withMigrator(subargs, func(m *migration.Migrator) error {
			return m.Up()
		})
	case "down":
		withMigrator(subargs, func(m *migration.Migrator) error {
			return m.Down()
		})
	case "status":
		withMigrator(subargs, func(m *migration.Migrator) error {
			statuses, err := m.Status()
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				if s.Dirty {
					state = "dirty"
				}
				fmt.Printf("%06d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		})
	case "version":
		withMigrator(subargs, func(m *migration.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Printf("version: %d  dirty: %v\n", version, dirty)
			return nil
		})
	case "force":
		if len(subargs) < 1 {
			fmt.Fprintln(os.Stderr, "migrate force requires a version argument")
			os.Exit(1)
		}
		version, err := strconv.Atoi(subargs[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid version: %s\n", subargs[0])
			os.Exit(1)
		}
		withMigrator(subargs[1:], func(m *migration.Migrator) error {
			return m.Force(version)
		})
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", subcommand)
		printMigrateUsage()
		os.Exit(1)
	}
}

// withMigrator loads config, opens the database and runs fn against a
// migrator, exiting nonzero on any failure.
func withMigrator(args []string, fn func(*migration.Migrator) error) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := openDatabase(cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to access database handle: %v\n", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	dbType, err := migration.ParseDatabaseType(cfg.Database.Driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	migrator, err := migration.NewMigrator(sqlDB, dbType, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer migrator.Close()

	if err := fn(migrator); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}

func printMigrateUsage() {
	fmt.Println(`Database Migration Commands

Usage:
  reportflow migrate <subcommand> [options]

Subcommands:
  up        Apply all pending migrations
  down      Rollback the last migration
  status    Show migration status
  version   Show current migration version
  force     Force set migration version (use with caution)
  help      Show this help message

Options:
  --config <path>   Path to configuration file (YAML)

Examples:
  reportflow migrate up
  reportflow migrate up --config /etc/reportflow/config.yaml
  reportflow migrate status
  reportflow migrate force 0`)
}
