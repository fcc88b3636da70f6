package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/spec-kit/legal-intake/internal/persistence"
)

const envDSN = "POSTGRES_DSN"

func main() {
	_ = godotenv.Load()

	var (
		dsn     = flag.String("dsn", "", "database connection string (defaults to $"+envDSN+")")
		up      = flag.Bool("up", false, "run all up migrations")
		down    = flag.Bool("down", false, "run all down migrations")
		steps   = flag.Int("steps", 0, "number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "print current migration version")
		force   = flag.Int("force", -1, "force set version")
	)
	flag.Parse()

	if *dsn == "" {
		*dsn = os.Getenv(envDSN)
	}
	if *dsn == "" {
		log.Fatalf("no database dsn: pass --dsn or set %s", envDSN)
	}

	m, err := persistence.NewMigrator(*dsn)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatalf("failed to get version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case flag.CommandLine.Changed("force"):
		if err := m.Force(*force); err != nil {
			log.Fatalf("failed to force version: %v", err)
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run up migrations: %v", err)
		}
		fmt.Println("migrations applied")
	case *down:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run down migrations: %v", err)
		}
		fmt.Println("migrations reverted")
	case *steps != 0:
		if err := m.Steps(*steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run migrations: %v", err)
		}
		fmt.Printf("applied %d migration steps\n", *steps)
	default:
		fmt.Println("usage: migrate [--dsn <connection-string>] [--up|--down|--steps N|--version|--force N]")
		flag.PrintDefaults()
	}
}
