package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nkiryanov/authtoken/internal/handlers/render"
	"github.com/nkiryanov/authtoken/internal/handlers/userctx"
	"github.com/nkiryanov/authtoken/internal/models"
)

const bearerPrefix = "bearer "

type authService interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

type debugLogger interface {
	Debug(msg string, args ...any)
}

// BearerToken returns token from 'Authorization: Bearer <token>' header
// Empty string if header is absent or has another scheme
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

func AuthMiddleware(as authService, l debugLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				l.Debug("request not authenticated", "uri", r.RequestURI, "error", err)
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
