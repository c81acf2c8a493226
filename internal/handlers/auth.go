package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/authtoken/internal/apperrors"
	"github.com/nkiryanov/authtoken/internal/handlers/middleware"
	"github.com/nkiryanov/authtoken/internal/handlers/render"
	"github.com/nkiryanov/authtoken/internal/logger"
	"github.com/nkiryanov/authtoken/internal/models"
)

type tokenResponse struct {
	AuthToken string `json:"authToken"`
}

func handleLogin(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required"`
		Email    string `json:"email"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			logger.Debug("login request rejected", "error", err)
			return
		}

		token, err := authService.Login(r.Context(), models.Credentials{
			Username: data.Username,
			Email:    data.Email,
			Password: data.Password,
		})
		if err != nil {
			renderAuthError(w, err, logger.With("handler", "login", "username", data.Username))
			return
		}

		render.JSON(w, tokenResponse{AuthToken: token.Value})
	})
}

func handleRefresh(authService authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := authService.Refresh(r.Context(), middleware.BearerToken(r))
		if err != nil {
			renderAuthError(w, err, logger.With("handler", "refresh"))
			return
		}

		render.JSON(w, tokenResponse{AuthToken: token.Value})
	})
}

// Map auth service error to response
// Client errors are logged at debug level, anything else is internal error
func renderAuthError(w http.ResponseWriter, err error, logger logger.Logger) {
	switch {
	case errors.Is(err, apperrors.ErrBadRequest):
		logger.Debug("bad request", "error", err)
		render.ServiceError(w, render.BadRequestMessage, http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrUnauthorized):
		logger.Debug("unauthorized", "error", err)
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
	default:
		logger.Error("auth service failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
