package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/authtoken/internal/models"
)

type CreateUserParams struct {
	Username       string
	Email          string
	HashedPassword string
}

// User repository interface (credential store)
// Implementations have to be safe for concurrent use
type UserRepo interface {
	// Create user
	// If user with username or email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)

	// Get user which username equals to username or email equals to email
	// Match by username wins over match by email. Empty email never matches
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByUsernameOrEmail(ctx context.Context, username string, email string) (models.User, error)
}
