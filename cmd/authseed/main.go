// Command authseed creates user accounts from YAML seed file,
// or a single account with password read from terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/authtoken/internal/logger"
	"github.com/nkiryanov/authtoken/internal/repository"
	"github.com/nkiryanov/authtoken/internal/service/auth"
	"github.com/nkiryanov/authtoken/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Getenv, os.Stdin, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "authseed: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	file         string
	username     string
	email        string
	store        string
	databaseDSN  string
	redisAddr    string
	skipExisting bool
	logLevel     string
}

func parseOptions(getenv func(string) string, args []string) (options, error) {
	o := options{
		store:       storage.KindPostgres,
		databaseDSN: getenv("DATABASE_URI"),
		redisAddr:   getenv("REDIS_ADDRESS"),
		logLevel:    logger.LevelInfo,
	}
	if store := getenv("STORE"); store != "" {
		o.store = store
	}

	fs := pflag.NewFlagSet("authseed", pflag.ContinueOnError)
	fs.StringVarP(&o.file, "file", "f", o.file, "YAML file with users to create")
	fs.StringVarP(&o.username, "username", "u", o.username, "Create single user with this username, password is read from stdin")
	fs.StringVar(&o.email, "email", o.email, "Email of single user")
	fs.StringVar(&o.store, "store", o.store, "Credential store (postgres, redis)")
	fs.StringVarP(&o.databaseDSN, "database", "d", o.databaseDSN, "Database connection string")
	fs.StringVarP(&o.redisAddr, "redis", "r", o.redisAddr, "Redis address")
	fs.BoolVar(&o.skipExisting, "skip-existing", o.skipExisting, "Skip users that already exist instead of failing")
	fs.StringVarP(&o.logLevel, "log-level", "l", o.logLevel, "Logging level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	switch {
	case o.file == "" && o.username == "":
		return o, errors.New("seed file or username is required, use --file or --username")
	case o.file != "" && o.username != "":
		return o, errors.New("--file and --username can't be used together")
	case o.email != "" && o.username == "":
		return o, errors.New("--email requires --username")
	}

	return o, nil
}

func run(ctx context.Context, getenv func(string) string, stdin io.Reader, args []string) error {
	o, err := parseOptions(getenv, args)
	if err != nil {
		return err
	}

	log, err := logger.NewTextLogger(o.logLevel)
	if err != nil {
		return err
	}

	seed, err := loadSeed(o, stdin)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, storage.Config{
		Kind:        o.store,
		DatabaseDSN: o.databaseDSN,
		RedisAddr:   o.redisAddr,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	seeder := &Seeder{hasher: auth.DefaultHasher, skipExisting: o.skipExisting, logger: log}

	var result SeedResult
	err = store.InTx(ctx, func(users repository.UserRepo) error {
		result, err = seeder.Seed(ctx, users, seed)
		return err
	})
	if err != nil {
		return err
	}

	log.Info("seeding finished", "created", result.Created, "skipped", result.Skipped)
	return nil
}

func loadSeed(o options, stdin io.Reader) (SeedFile, error) {
	if o.username != "" {
		password, err := promptPassword(stdin, os.Stderr)
		if err != nil {
			return SeedFile{}, err
		}
		return NewSeed(SeedUser{Username: o.username, Email: o.email, Password: password})
	}

	f, err := os.Open(o.file)
	if err != nil {
		return SeedFile{}, err
	}
	defer f.Close() // nolint:errcheck

	return ParseSeedFile(f)
}
