package userctx

import (
	"context"

	"github.com/nkiryanov/authtoken/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// Create a new context with the authenticated user identity
func New(ctx context.Context, u models.Identity) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// Extract the user identity from the context
func FromContext(ctx context.Context) (models.Identity, bool) {
	u, ok := ctx.Value(userKey).(models.Identity)
	return u, ok
}
