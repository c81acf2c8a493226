package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/authtoken/internal/logger"
	"github.com/nkiryanov/authtoken/internal/models"
	"github.com/nkiryanov/authtoken/internal/repository"
	"github.com/nkiryanov/authtoken/internal/repository/redisstore"
	"github.com/nkiryanov/authtoken/internal/service/auth"
	"github.com/nkiryanov/authtoken/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/authtoken/internal/testutil"
)

const testSecret = "test-secret"

type response struct {
	status int
	body   string
}

func doRequest(t *testing.T, method string, url string, body string, token string) response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return response{status: resp.StatusCode, body: string(data)}
}

func authTokenFrom(t *testing.T, body string) string {
	t.Helper()

	var data struct {
		AuthToken string `json:"authToken"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &data))
	require.NotEmpty(t, data.AuthToken, "authToken should be in response")
	return data.AuthToken
}

func claimsFrom(t *testing.T, token string) *tokenmanager.Claims {
	t.Helper()

	claims := &tokenmanager.Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err, "token should be valid")
	return claims
}

func signed(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenmanager.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "nk", ExpiresAt: jwt.NewNumericDate(expiresAt)},
		User:             models.Identity{Username: "nk"},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// Auth service that always fails with unexpected error
type failingAuth struct{}

func (failingAuth) Login(ctx context.Context, creds models.Credentials) (models.IssuedToken, error) {
	return models.IssuedToken{}, errors.New("redis: connection refused")
}

func (failingAuth) Refresh(ctx context.Context, token string) (models.IssuedToken, error) {
	return models.IssuedToken{}, errors.New("redis: connection refused")
}

func (failingAuth) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	return models.Identity{}, errors.New("redis: connection refused")
}

func Test_AuthHandler(t *testing.T) {
	t.Parallel()

	// Run http server with production router and auth service
	// Every test gets its own redis with one registered user
	withServer := func(t *testing.T, fn func(url string, user models.User)) {
		_, client := testutil.StartRedis(t)
		userRepo := redisstore.NewUserRepo(client, "test")

		hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
		hash, err := hasher.Hash("StrongEnoughPassword")
		require.NoError(t, err)
		user, err := userRepo.CreateUser(t.Context(), repository.CreateUserParams{
			Username:       "nk",
			Email:          "nk@example.com",
			HashedPassword: hash,
		})
		require.NoError(t, err)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: testSecret})
		require.NoError(t, err, "token manager should be created without errors")

		s, err := auth.NewService(auth.Config{Hasher: hasher}, tokenManager, userRepo)
		require.NoError(t, err, "auth service starting error")

		srv := httptest.NewServer(NewRouter(s, logger.NewNoOpLogger()))
		defer srv.Close()

		fn(srv.URL, user)
	}

	t.Run("login ok", func(t *testing.T) {
		withServer(t, func(url string, user models.User) {
			resp := doRequest(t, http.MethodPost, url+"/api/auth/login", `{"username": "nk", "password": "StrongEnoughPassword"}`, "")

			require.Equalf(t, http.StatusOK, resp.status, "not expected code. Body: %s", resp.body)

			claims := claimsFrom(t, authTokenFrom(t, resp.body))
			assert.Equal(t, models.Identity{ID: user.ID, Username: "nk", Email: "nk@example.com"}, claims.User)
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, 2*time.Second, "default ttl is 24h")
			assert.NotContains(t, resp.body, user.HashedPassword)
		})
	})

	t.Run("login by email ok", func(t *testing.T) {
		withServer(t, func(url string, _ models.User) {
			resp := doRequest(t, http.MethodPost, url+"/api/auth/login", `{"username": "nick", "email": "nk@example.com", "password": "StrongEnoughPassword"}`, "")

			require.Equalf(t, http.StatusOK, resp.status, "not expected code. Body: %s", resp.body)
			assert.Equal(t, "nk", claimsFrom(t, authTokenFrom(t, resp.body)).User.Username)
		})
	})

	t.Run("login failed", func(t *testing.T) {
		tests := []struct {
			name           string
			body           string
			expectedStatus int
			expectedBody   string
		}{
			{
				name:           "empty username",
				body:           `{"username": "", "email": "nk@example.com", "password": "StrongEnoughPassword"}`,
				expectedStatus: http.StatusBadRequest,
				expectedBody:   `{"error": "validation_failed", "message": "Bad Request", "fields": {"username": "This field is required"}}`,
			},
			{
				name:           "empty password",
				body:           `{"username": "nk", "email": "nk@example.com"}`,
				expectedStatus: http.StatusBadRequest,
				expectedBody:   `{"error": "validation_failed", "message": "Bad Request", "fields": {"password": "This field is required"}}`,
			},
			{
				name:           "blank username",
				body:           `{"username": "   ", "password": "StrongEnoughPassword"}`,
				expectedStatus: http.StatusBadRequest,
				expectedBody:   `{"error": "service_error", "message": "Bad Request"}`,
			},
			{
				name:           "not existed user",
				body:           `{"username": "unknown", "password": "StrongEnoughPassword"}`,
				expectedStatus: http.StatusUnauthorized,
				expectedBody:   `{"error": "service_error", "message": "Unauthorized"}`,
			},
			{
				name:           "wrong password",
				body:           `{"username": "nk", "password": "WrongPassword"}`,
				expectedStatus: http.StatusUnauthorized,
				expectedBody:   `{"error": "service_error", "message": "Unauthorized"}`,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withServer(t, func(url string, _ models.User) {
					resp := doRequest(t, http.MethodPost, url+"/api/auth/login", tt.body, "")

					require.Equalf(t, tt.expectedStatus, resp.status, "not expected code. Body: %s", resp.body)
					require.JSONEq(t, tt.expectedBody, resp.body)
				})
			})
		}

		t.Run("long values are not rejected as malformed", func(t *testing.T) {
			tests := []struct {
				name           string
				body           string
				expectedStatus int
			}{
				{
					name:           "unknown long username",
					body:           `{"username": "` + strings.Repeat("u", 300) + `", "password": "StrongEnoughPassword"}`,
					expectedStatus: http.StatusUnauthorized,
				},
				{
					name:           "known user with long wrong password",
					body:           `{"username": "nk", "password": "` + strings.Repeat("p", 2000) + `"}`,
					expectedStatus: http.StatusUnauthorized,
				},
				{
					name:           "valid credentials with long email",
					body:           `{"username": "nk", "email": "` + strings.Repeat("e", 300) + `@example.com", "password": "StrongEnoughPassword"}`,
					expectedStatus: http.StatusOK,
				},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					withServer(t, func(url string, _ models.User) {
						resp := doRequest(t, http.MethodPost, url+"/api/auth/login", tt.body, "")

						require.Equalf(t, tt.expectedStatus, resp.status, "not expected code. Body: %s", resp.body)
					})
				})
			}
		})

		t.Run("invalid json", func(t *testing.T) {
			withServer(t, func(url string, _ models.User) {
				resp := doRequest(t, http.MethodPost, url+"/api/auth/login", `not-json`, "")

				require.Equal(t, http.StatusBadRequest, resp.status)
				require.Contains(t, resp.body, `"message":"Bad Request"`)
			})
		})
	})

	t.Run("refresh ok", func(t *testing.T) {
		withServer(t, func(url string, _ models.User) {
			login := doRequest(t, http.MethodPost, url+"/api/auth/login", `{"username": "nk", "password": "StrongEnoughPassword"}`, "")
			require.Equal(t, http.StatusOK, login.status)
			initial := authTokenFrom(t, login.body)

			resp := doRequest(t, http.MethodPost, url+"/api/auth/refresh", "", initial)

			require.Equalf(t, http.StatusOK, resp.status, "not expected code. Body: %s", resp.body)
			refreshed := authTokenFrom(t, resp.body)
			require.NotEqual(t, initial, refreshed)

			before, after := claimsFrom(t, initial), claimsFrom(t, refreshed)
			assert.Greater(t, after.ExpiresAt.Unix(), before.ExpiresAt.Unix(), "expiration should be extended")
			assert.Equal(t, before.User, after.User, "identity should be kept")
		})
	})

	t.Run("refresh failed", func(t *testing.T) {
		tests := []struct {
			name  string
			token func(t *testing.T) string
		}{
			{
				name:  "no token",
				token: func(t *testing.T) string { return "" },
			},
			{
				name:  "wrong secret",
				token: func(t *testing.T) string { return signed(t, "Incorrect Secret", time.Now().Add(time.Hour)) },
			},
			{
				name:  "expired",
				token: func(t *testing.T) string { return signed(t, testSecret, time.Now().Add(-10*time.Second)) },
			},
			{
				name:  "garbage",
				token: func(t *testing.T) string { return "not.a.jwt" },
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withServer(t, func(url string, _ models.User) {
					resp := doRequest(t, http.MethodPost, url+"/api/auth/refresh", "", tt.token(t))

					require.Equalf(t, http.StatusUnauthorized, resp.status, "not expected code. Body: %s", resp.body)
					require.JSONEq(t, `{"error": "service_error", "message": "Unauthorized"}`, resp.body)
				})
			})
		}
	})

	t.Run("refresh wrong method", func(t *testing.T) {
		withServer(t, func(url string, _ models.User) {
			resp := doRequest(t, http.MethodGet, url+"/api/auth/refresh", "", "")

			require.Equal(t, http.StatusMethodNotAllowed, resp.status)
		})
	})

	t.Run("me", func(t *testing.T) {
		withServer(t, func(url string, user models.User) {
			login := doRequest(t, http.MethodPost, url+"/api/auth/login", `{"username": "nk", "password": "StrongEnoughPassword"}`, "")
			require.Equal(t, http.StatusOK, login.status)

			resp := doRequest(t, http.MethodGet, url+"/api/auth/me", "", authTokenFrom(t, login.body))

			require.Equalf(t, http.StatusOK, resp.status, "not expected code. Body: %s", resp.body)
			require.JSONEq(t, `{"id": "`+user.ID.String()+`", "username": "nk", "email": "nk@example.com"}`, resp.body)
		})
	})

	t.Run("me unauthorized", func(t *testing.T) {
		withServer(t, func(url string, _ models.User) {
			resp := doRequest(t, http.MethodGet, url+"/api/auth/me", "", "")

			require.Equal(t, http.StatusUnauthorized, resp.status)
		})
	})

	t.Run("internal error", func(t *testing.T) {
		srv := httptest.NewServer(NewRouter(failingAuth{}, logger.NewNoOpLogger()))
		defer srv.Close()

		login := doRequest(t, http.MethodPost, srv.URL+"/api/auth/login", `{"username": "nk", "password": "StrongEnoughPassword"}`, "")
		refresh := doRequest(t, http.MethodPost, srv.URL+"/api/auth/refresh", "", "token")

		for _, resp := range []response{login, refresh} {
			require.Equal(t, http.StatusInternalServerError, resp.status)
			require.JSONEq(t, `{"error": "service_error", "message": "Internal server error"}`, resp.body)
			require.NotContains(t, resp.body, "redis", "internal details should not leak")
		}
	})
}
