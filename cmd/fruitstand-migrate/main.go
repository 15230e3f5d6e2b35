package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	// Only lib/pq is imported for postgres. The sqlite driver is registered
	// by golang-migrate/migrate/v4/database/sqlite via modernc.org/sqlite.
	_ "github.com/lib/pq"

	"github.com/fruitstand/fruitstand/internal/migrate"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fruitstand-migrate", flag.ContinueOnError)
	driver := fs.String("driver", migrate.DriverPostgres, "Database driver (postgres|sqlite)")
	dsn := fs.String("dsn", "", "Database connection string")
	down := fs.Bool("down", false, "Revert all migrations instead of applying them")
	logLevel := fs.String("log-level", "info", "Log level")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fruitstand-migrate [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Creates and seeds the fruitstand schema on PostgreSQL or SQLite.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n\n")
		fmt.Fprintf(os.Stderr, "  PostgreSQL:\n")
		fmt.Fprintf(os.Stderr, "    fruitstand-migrate -driver=postgres -dsn=\"host=localhost user=postgres password=postgres dbname=fruitstand port=5432 sslmode=disable\"\n\n")
		fmt.Fprintf(os.Stderr, "  SQLite:\n")
		fmt.Fprintf(os.Stderr, "    fruitstand-migrate -driver=sqlite -dsn=fruitstand.db\n\n")
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "fruitstand-migrate",
		Level: hclog.LevelFromString(*logLevel),
	})

	if *dsn == "" {
		log.Error("-dsn flag is required, run with -help for usage information")
		return 1
	}

	if *driver != migrate.DriverPostgres && *driver != migrate.DriverSQLite {
		log.Error("unsupported driver, must be postgres or sqlite", "driver", *driver)
		return 1
	}

	log.Info("connecting to database", "driver", *driver)
	sqlDB, err := sql.Open(*driver, *dsn)
	if err != nil {
		log.Error("failed to open database", "error", err)
		return 1
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Error("failed to ping database", "error", err)
		return 1
	}

	if *down {
		log.Info("reverting migrations")
		if err := migrate.RollbackMigrations(sqlDB, *driver); err != nil {
			log.Error("rollback failed", "error", err)
			return 1
		}
		log.Info("all migrations reverted")
		return 0
	}

	log.Info("running migrations")
	if err := migrate.RunMigrations(sqlDB, *driver); err != nil {
		log.Error("migration failed", "error", err)
		return 1
	}

	version, dirty, err := migrate.GetMigrationVersion(sqlDB, *driver)
	if err != nil {
		log.Warn("could not read migration version", "error", err)
	}
	log.Info("all migrations completed", "version", version, "dirty", dirty)
	return 0
}
