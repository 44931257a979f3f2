package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/config"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
	"github.com/hongminglow/portfolio-be/internal/storage/postgres"
	"github.com/hongminglow/portfolio-be/internal/validate"
)

type useraddCmd struct {
	databaseURL string
	email       string
}

func (*useraddCmd) Name() string     { return "useradd" }
func (*useraddCmd) Synopsis() string { return "create a user account" }
func (*useraddCmd) Usage() string {
	return `portfolioctl useradd [-db <url>] [-email <email>] <username>

  Prompts for the password without echo. When stdin is not a terminal the
  first line of stdin is used.
`
}

func (c *useraddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.databaseURL, "db", os.Getenv("DATABASE_URL"), "Postgres connection URL (defaults to $DATABASE_URL).")
	f.StringVar(&c.email, "email", "", "Optional email address.")
}

func (c *useraddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 || c.databaseURL == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	password, err := promptPassword(os.Stdin, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read password: %v\n", err)
		return subcommands.ExitFailure
	}

	store, err := postgres.NewStore(ctx, c.databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	user, err := createUser(ctx, store, f.Arg(0), c.email, password, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(user.ID)
	return subcommands.ExitSuccess
}

// promptPassword reads a password from in, without echo when in is a terminal.
func promptPassword(in *os.File, w io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}
	fmt.Fprint(w, "Enter password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// createUser applies the same rules as the register endpoint.
func createUser(ctx context.Context, store storage.UserStore, username, email, password string, now time.Time) (models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.First(validate.Username(username), validate.Password(password)); err != nil {
		return models.User{}, err
	}
	if email != "" {
		if err := validate.Email(email); err != nil {
			return models.User{}, err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	stamp := models.NowMillis(now)
	user, err := store.CreateUser(ctx, models.User{
		ID:           models.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return models.User{}, fmt.Errorf("user %q already exists", username)
	}
	return user, err
}

type tokenCmd struct {
	ttl time.Duration
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "mint a bearer token for an existing user" }
func (*tokenCmd) Usage() string {
	return `portfolioctl token [-ttl <duration>] <username|email>

  Signs a token with $JWT_SECRET for the named user. Useful for smoke tests.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.ttl, "ttl", 0, "Token lifetime (defaults to $JWT_TTL_MINUTES).")
}

func (c *tokenCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if cfg.StorageDriver != config.DriverPostgres {
		fmt.Fprintln(os.Stderr, "token requires STORAGE_DRIVER=postgres")
		return subcommands.ExitFailure
	}

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	ttl := cfg.JWTTTL
	if c.ttl > 0 {
		ttl = c.ttl
	}
	token, err := mintToken(ctx, store, auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, ttl), f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(token)
	return subcommands.ExitSuccess
}

func mintToken(ctx context.Context, store storage.UserStore, tokens *auth.TokenManager, identifier string) (string, error) {
	user, err := store.FindByUsernameOrEmail(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("no user %q", identifier)
	}
	if err != nil {
		return "", err
	}
	return tokens.Generate(user)
}
