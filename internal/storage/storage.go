// Package storage opens the credential store selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/authtoken/internal/db"
	"github.com/nkiryanov/authtoken/internal/repository"
	"github.com/nkiryanov/authtoken/internal/repository/postgres"
	"github.com/nkiryanov/authtoken/internal/repository/redisstore"
)

// Supported store kinds
const (
	KindPostgres = "postgres"
	KindRedis    = "redis"
)

type Config struct {
	// Store kind: postgres or redis
	Kind string

	// Postgres connection string, used when Kind is postgres
	DatabaseDSN string

	// Redis address (host:port), used when Kind is redis
	RedisAddr string

	// Prefix of redis keys
	// If not set redisstore default is used
	RedisPrefix string
}

// Opened credential store
type Store struct {
	users repository.UserRepo
	inTx  func(ctx context.Context, fn func(repository.UserRepo) error) error
	close func()
}

// Open connects to the configured store
// Postgres schema is migrated on open
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Kind {
	case KindPostgres:
		return openPostgres(ctx, cfg)
	case KindRedis:
		return openRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store %q, use one of: %s, %s", cfg.Kind, KindPostgres, KindRedis)
	}
}

func openPostgres(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := db.ConnectAndMigrate(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	s := postgres.NewStorage(pool)

	return &Store{
		users: s.User(),
		inTx: func(ctx context.Context, fn func(repository.UserRepo) error) error {
			return s.InTx(ctx, func(tx *postgres.Storage) error {
				return fn(tx.User())
			})
		},
		close: pool.Close,
	}, nil
}

func openRedis(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis is not reachable. Err: %w", err)
	}

	users := redisstore.NewUserRepo(client, cfg.RedisPrefix)

	return &Store{
		users: users,
		inTx: func(ctx context.Context, fn func(repository.UserRepo) error) error {
			return fn(users)
		},
		close: func() { _ = client.Close() },
	}, nil
}

func (s *Store) User() repository.UserRepo {
	return s.users
}

// InTx runs fn in a single transaction where the store supports it
// Redis has no multi-user transaction: every write of fn is applied immediately
func (s *Store) InTx(ctx context.Context, fn func(repository.UserRepo) error) error {
	return s.inTx(ctx, fn)
}

func (s *Store) Close() {
	s.close()
}
