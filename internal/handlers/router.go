package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/authtoken/internal/handlers/middleware"
	"github.com/nkiryanov/authtoken/internal/logger"
	"github.com/nkiryanov/authtoken/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService, logger)

	apiauth := http.NewServeMux()

	apiauth.Handle("POST /login", handleLogin(authService, logger))
	apiauth.Handle("POST /refresh", handleRefresh(authService, logger))
	apiauth.Handle("GET /me", withAuth(handleUserMe()))

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Login user with username (or email) and password
	// Has to return apperrors.ErrBadRequest if credentials are incomplete
	// Has to return apperrors.ErrUnauthorized if user not found or password is wrong
	Login(ctx context.Context, creds models.Credentials) (models.IssuedToken, error)

	// Issue new token with extended expiration for still valid token
	// Has to return apperrors.ErrUnauthorized if token is missing, invalid or expired
	Refresh(ctx context.Context, token string) (models.IssuedToken, error)

	// Verify token and return identity embedded into it
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}
