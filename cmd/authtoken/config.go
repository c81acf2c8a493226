package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/authtoken/internal/logger"
	"github.com/nkiryanov/authtoken/internal/storage"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultStore        = storage.KindPostgres
	defaultTokenTTL     = 24 * time.Hour
	defaultTokenAlg     = "HS256"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the authtoken service will be run
	ListenAddr string

	// Credential store kind: postgres or redis
	Store string

	// Database to connect to
	DatabaseDSN string

	// Redis to connect to
	RedisAddr string

	// Secret key
	// Tokens are signed with symmetric algorithm, so this key is used for both signing and verification
	SecretKey string

	// Lifetime of issued tokens
	TokenTTL time.Duration

	// Token signing algorithm: HS256, HS384 or HS512
	TokenAlg string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		Store:       defaultStore,
		TokenTTL:    defaultTokenTTL,
		TokenAlg:    defaultTokenAlg,
		Environment: defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":   setString(&c.ListenAddr),
		"DATABASE_URI":  setString(&c.DatabaseDSN),
		"REDIS_ADDRESS": setString(&c.RedisAddr),
		"STORE":         setString(&c.Store),
		"SECRET_KEY":    setString(&c.SecretKey),
		"TOKEN_TTL":     setDuration(&c.TokenTTL),
		"TOKEN_ALG":     setString(&c.TokenAlg),
		"LOG_LEVEL":     setString(&c.LogLevel),
		"ENVIRONMENT":   setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authtoken", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVar(&c.Store, "store", c.Store, "Credential store (postgres, redis)")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.DurationVarP(&c.TokenTTL, "token-ttl", "t", c.TokenTTL, "Lifetime of issued tokens")
	fs.StringVar(&c.TokenAlg, "token-alg", c.TokenAlg, "Token signing algorithm (HS256, HS384, HS512)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

// Validate options that can't be checked by their consumers before the server starts
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.TokenTTL < time.Second {
		errs = append(errs, fmt.Errorf("token ttl must be at least one second, got %s", c.TokenTTL))
	}

	switch c.Store {
	case storage.KindPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("database connection string is required for postgres store"))
		}
	case storage.KindRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}

	return errors.Join(errs...)
}
