package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/hongminglow/portfolio-be/internal/storage/postgres"
)

type migrateCmd struct {
	databaseURL string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply or inspect database schema migrations" }
func (*migrateCmd) Usage() string {
	return `portfolioctl migrate [-db <url>] [up|down|status|version|redo|reset]

  Runs a goose command against the embedded migrations. Defaults to "up".
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.databaseURL, "db", os.Getenv("DATABASE_URL"), "Postgres connection URL (defaults to $DATABASE_URL).")
}

func (c *migrateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	command := "up"
	switch f.NArg() {
	case 0:
	case 1:
		command = f.Arg(0)
	default:
		f.Usage()
		return subcommands.ExitUsageError
	}
	if c.databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		return subcommands.ExitUsageError
	}

	pool, err := postgres.Connect(ctx, c.databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, command); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
