package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nkiryanov/authtoken/internal/apperrors"
	"github.com/nkiryanov/authtoken/internal/models"
	"github.com/nkiryanov/authtoken/internal/repository"
	"github.com/nkiryanov/authtoken/internal/service/auth/tokenmanager"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type TokenManager interface {
	// Issue new token for the identity
	Issue(user models.Identity, subject string) (models.IssuedToken, error)

	// Issue new token with the same identity and later expiration
	Reissue(claims tokenmanager.Claims) (models.IssuedToken, error)

	// Parse and validate token
	// Errors has to wrap apperrors.ErrUnauthorized
	Parse(token string) (tokenmanager.Claims, error)
}

type Config struct {
	// Hasher to compare user passwords during login
	// If not set DefaultHasher is used
	Hasher PasswordHasher
}

// Auth service
type AuthService struct {
	// Manager to issue and verify tokens
	tokenManager TokenManager

	// hasher to compare user passwords
	hasher PasswordHasher

	// Credential store
	userRepo repository.UserRepo

	// Hash to compare against when user not found
	// So response time does not tell whether the user exists
	dummyHash func() (string, error)
}

func NewService(cfg Config, tokenManager TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	if tokenManager == nil || userRepo == nil {
		return nil, errors.New("token manager and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	return &AuthService{
		tokenManager: tokenManager,
		hasher:       hasher,
		userRepo:     userRepo,
		dummyHash: sync.OnceValues(func() (string, error) {
			return hasher.Hash("dummy-password-to-spend-time-on")
		}),
	}, nil
}

// Login user with username (or email) and password and issue new token
// Returns apperrors.ErrBadRequest if username or password is empty
// Returns apperrors.ErrUnauthorized if user not found or password is wrong
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (models.IssuedToken, error) {
	var token models.IssuedToken

	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return token, fmt.Errorf("%w: username and password are required", apperrors.ErrBadRequest)
	}

	user, err := s.userRepo.GetUserByUsernameOrEmail(ctx, username, strings.TrimSpace(creds.Email))
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		s.spendCompare(creds.Password)
		return token, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	case err != nil:
		return token, fmt.Errorf("can't get user. Err: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, creds.Password); err != nil {
		return token, fmt.Errorf("%w: password does not match", apperrors.ErrUnauthorized)
	}

	token, err = s.tokenManager.Issue(user.Identity(), user.Username)
	if err != nil {
		return token, fmt.Errorf("token could not be issued, sorry. Err: %w", err)
	}

	return token, nil
}

// Refresh valid token: issue new one with same identity and later expiration
// Identity is taken from the token as is, the user is not re-read from the store
func (s *AuthService) Refresh(ctx context.Context, token string) (models.IssuedToken, error) {
	claims, err := s.tokenManager.Parse(token)
	if err != nil {
		return models.IssuedToken{}, err
	}

	issued, err := s.tokenManager.Reissue(claims)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("token could not be issued, sorry. Err: %w", err)
	}

	return issued, nil
}

// Authenticate token and return identity embedded into it
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	claims, err := s.tokenManager.Parse(token)
	if err != nil {
		return models.Identity{}, err
	}

	return claims.User, nil
}

func (s *AuthService) spendCompare(password string) {
	hash, err := s.dummyHash()
	if err != nil {
		return
	}
	_ = s.hasher.Compare(hash, password)
}
