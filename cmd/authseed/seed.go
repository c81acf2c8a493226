package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nkiryanov/authtoken/internal/apperrors"
	"github.com/nkiryanov/authtoken/internal/logger"
	"github.com/nkiryanov/authtoken/internal/repository"
	"github.com/nkiryanov/authtoken/internal/service/auth"
	"github.com/nkiryanov/authtoken/internal/service/user"
)

// Seed file with accounts to create
//
//	users:
//	  - username: alice
//	    email: alice@example.com
//	    password: alice-password
type SeedFile struct {
	Users []SeedUser `yaml:"users" validate:"required,min=1,dive"`
}

type SeedUser struct {
	Username string `yaml:"username" validate:"required,max=150"`
	Email    string `yaml:"email" validate:"omitempty,email,max=254"`
	Password string `yaml:"password" validate:"required,max=1024"`
}

// ParseSeedFile reads and validates seed file
// Unknown fields are rejected
func ParseSeedFile(r io.Reader) (SeedFile, error) {
	var seed SeedFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return seed, fmt.Errorf("failed to parse seed file: %w", err)
	}

	return validateSeed(seed)
}

// NewSeed builds validated seed from users given directly
func NewSeed(users ...SeedUser) (SeedFile, error) {
	return validateSeed(SeedFile{Users: users})
}

func validateSeed(seed SeedFile) (SeedFile, error) {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(seed); err != nil {
		return seed, fmt.Errorf("invalid seed: %w", err)
	}
	return seed, nil
}

type Seeder struct {
	hasher       auth.PasswordHasher
	skipExisting bool
	logger       logger.Logger
}

type SeedResult struct {
	Created int
	Skipped int
}

// Seed creates every user of the seed file through the user service
// With skipExisting users that clash with stored ones by username or email are skipped,
// otherwise the first clash fails seeding
func (s *Seeder) Seed(ctx context.Context, users repository.UserRepo, seed SeedFile) (SeedResult, error) {
	var result SeedResult
	service := user.NewService(s.hasher, users)

	for _, u := range seed.Users {
		if s.skipExisting {
			_, err := users.GetUserByUsernameOrEmail(ctx, u.Username, u.Email)
			switch {
			case err == nil:
				s.logger.Info("user already exists, skipped", "username", u.Username)
				result.Skipped++
				continue
			case !errors.Is(err, apperrors.ErrUserNotFound):
				return result, err
			}
		}

		created, err := service.CreateUser(ctx, u.Username, u.Email, u.Password)
		if err != nil {
			return result, fmt.Errorf("user %q: %w", u.Username, err)
		}
		s.logger.Info("user created", "username", created.Username, "id", created.ID)
		result.Created++
	}

	return result, nil
}
