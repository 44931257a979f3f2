package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/hongminglow/portfolio-be/internal/events"
)

type watchCmd struct {
	addr     string
	password string
	db       int
	stream   string
	fromZero bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "print portfolio change events as they are published" }
func (*watchCmd) Usage() string {
	return `portfolioctl watch [-redis <addr>] [-stream <name>] [-all]

  Tails the Redis stream the server publishes portfolio and holding
  changes to. Stops on Ctrl-C.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "redis", os.Getenv("REDIS_ADDR"), "Redis address (defaults to $REDIS_ADDR).")
	f.StringVar(&c.password, "password", os.Getenv("REDIS_PASSWORD"), "Redis password.")
	f.IntVar(&c.db, "n", 0, "Redis database number.")
	f.StringVar(&c.stream, "stream", envOr("EVENTS_STREAM", events.DefaultStream), "Stream name.")
	f.BoolVar(&c.fromZero, "all", false, "Replay the whole stream instead of only new events.")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.addr == "" {
		fmt.Fprintln(os.Stderr, "a Redis address is required (-redis or $REDIS_ADDR)")
		return subcommands.ExitUsageError
	}
	rdb, err := events.NewRedisClient(ctx, c.addr, c.password, c.db)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rdb.Close()

	start := "$"
	if c.fromZero {
		start = "0"
	}
	err = events.Tail(ctx, rdb, c.stream, start, func(_ context.Context, id string, e events.Event) error {
		return printEvent(os.Stdout, id, e)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printEvent(w io.Writer, id string, e events.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s %s %-20s %s\n", e.Timestamp.Format(time.RFC3339), id, e.Type, data)
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
