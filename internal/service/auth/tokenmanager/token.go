package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/authtoken/internal/apperrors"
	"github.com/nkiryanov/authtoken/internal/models"
)

const (
	defaultTokenTTL      = 24 * time.Hour
	defaultSigningMethod = "HS256"
)

// Claims of issued auth token
// Only sanitized user identity is embedded, never the password hash
type Claims struct {
	jwt.RegisteredClaims
	User models.Identity `json:"user"`
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm: HS256, HS384 or HS512
	// If not set than default is used
	Alg string

	// Token lifetime
	// If not set than default is used
	TTL time.Duration
}

type TokenManager struct {
	// Secret key to sign and verify tokens
	key []byte

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Token lifetime
	ttl time.Duration

	// Clock, replaced in tests only
	now func() time.Time
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("signing method %q is not supported, use one of HS256, HS384, HS512", cfg.Alg)
	}

	switch {
	case cfg.TTL == 0:
		cfg.TTL = defaultTokenTTL
	case cfg.TTL < time.Second:
		return nil, fmt.Errorf("token ttl must be at least one second, got %s", cfg.TTL)
	}

	return &TokenManager{
		key: []byte(cfg.SecretKey),
		alg: alg,
		ttl: cfg.TTL,
		now: time.Now,
	}, nil
}

// Issue new signed token for the user identity
func (m *TokenManager) Issue(user models.Identity, subject string) (models.IssuedToken, error) {
	return m.issue(user, subject, time.Time{})
}

// Issue new token with the same identity and subject as the parsed one
// Expiration of the new token is always strictly after expiration of the old one
func (m *TokenManager) Reissue(claims Claims) (models.IssuedToken, error) {
	var notBefore time.Time
	if claims.ExpiresAt != nil {
		notBefore = claims.ExpiresAt.Time
	}

	return m.issue(claims.User, claims.Subject, notBefore)
}

func (m *TokenManager) issue(user models.Identity, subject string, expiresAfter time.Time) (models.IssuedToken, error) {
	var token models.IssuedToken

	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.ttl)
	if !expiresAt.After(expiresAfter) {
		// NumericDate has seconds precision: make sure the difference survives encoding
		expiresAt = expiresAfter.Truncate(time.Second).Add(time.Second)
	}

	jwtToken := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   subject,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			User: user,
		},
	)

	value, err := jwtToken.SignedString(m.key)
	if err != nil {
		return token, fmt.Errorf("error while signing token. Err: %w", err)
	}

	return models.IssuedToken{
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Parse and validate token
// Every failure wraps apperrors.ErrUnauthorized and one of
// apperrors.ErrTokenMissing, apperrors.ErrTokenExpired, apperrors.ErrTokenInvalid
func (m *TokenManager) Parse(token string) (Claims, error) {
	if token == "" {
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, apperrors.ErrTokenMissing)
	}

	claims := Claims{}
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) {
			return m.key, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	switch {
	case err == nil && claims.Subject == "":
		return Claims{}, fmt.Errorf("%w: %w: subject is empty", apperrors.ErrUnauthorized, apperrors.ErrTokenInvalid)
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, apperrors.ErrTokenExpired)
	default:
		return Claims{}, fmt.Errorf("%w: %w: %w", apperrors.ErrUnauthorized, apperrors.ErrTokenInvalid, err)
	}
}
