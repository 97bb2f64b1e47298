package main

import (
	"fmt"
	"os"

	"herald/config"
	"herald/internal/errors"
	"herald/internal/infra/persistence/migrations"

	pgLib "github.com/slighter12/go-lib/database/postgres"
)

// Usage: migrate up|down
// Connection settings come from the same config file and env overrides as the server.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down")
		os.Exit(2)
	}

	err := run(migrations.Direction(os.Args[1]))
	switch {
	case errors.Is(err, migrations.ErrNoChange):
		fmt.Println("No change")
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	default:
		fmt.Printf("Migrated %s\n", os.Args[1])
	}
}

func run(direction migrations.Direction) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if cfg.Postgres == nil {
		return errors.New("postgres config is required")
	}

	db, err := pgLib.New(cfg.Postgres)
	if err != nil {
		return errors.Wrap(err, "failed to create PostgreSQL client")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	return migrations.Run(sqlDB, direction)
}
