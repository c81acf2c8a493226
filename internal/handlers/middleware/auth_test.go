package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authtoken/internal/handlers/userctx"
	"github.com/nkiryanov/authtoken/internal/models"
)

// Allow to use a function as auth service
type authFunc func(ctx context.Context, token string) (models.Identity, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	return f(ctx, token)
}

type debugFunc func(string, ...any)

func (f debugFunc) Debug(msg string, v ...any) { f(msg, v...) }

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"no header", "", ""},
		{"bearer", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"lowercase scheme", "bearer abc.def.ghi", "abc.def.ghi"},
		{"extra spaces", "  Bearer   abc.def.ghi  ", "abc.def.ghi"},
		{"only scheme", "Bearer ", ""},
		{"other scheme", "Basic dXNlcjpwYXNz", ""},
		{"no scheme", "abc.def.ghi", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			require.Equal(t, tt.expected, BearerToken(r))
		})
	}
}

func TestAuthMiddleware_Auth(t *testing.T) {
	// Simple handler that try to get user from context
	// If ok write it username to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set user to response or write error to response
		user, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(user.Username))
		require.NoError(t, err, "should write username to response")
	})

	noDebug := debugFunc(func(string, ...any) {})

	t.Run("auth ok", func(t *testing.T) {
		var gotToken string

		// Middleware that always return ok
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, token string) (models.Identity, error) {
			gotToken = token
			return models.Identity{Username: "test-user"}, nil
		}), noDebug)

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer some-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", string(body))
		require.Equal(t, "test-user", string(body), "should return username in response")
		require.Equal(t, "some-token", gotToken, "token from header should be passed to auth service")
	})

	t.Run("auth fail", func(t *testing.T) {
		var logged []any

		// Middleware that always fails
		middleware := AuthMiddleware(authFunc(func(ctx context.Context, token string) (models.Identity, error) {
			return models.Identity{}, errors.New("token expired")
		}), debugFunc(func(_ string, args ...any) { logged = args }))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "should return status Unauthorized. Resp: %s", string(body))
		require.JSONEq(t,
			`{
				"error": "service_error",
				"message": "Unauthorized"
			}`,
			string(body),
		)
		require.Contains(t, logged, "error", "auth failure cause should be logged")
	})
}
