package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/assist-by/portfolio/internal/config"
	"github.com/assist-by/portfolio/internal/storage/postgres"
	"github.com/google/subcommands"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create missing database tables" }
func (*migrateCmd) Usage() string {
	return `migrate

  Applies the schema to DATABASE_URL. Safe to run repeatedly.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if cfg.Database.Storage != config.StoragePostgres {
		fmt.Fprintln(os.Stderr, "Error: migrate requires STORAGE=postgres")
		return subcommands.ExitUsageError
	}

	pool, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("schema is up to date")
	return subcommands.ExitSuccess
}
