package models

import (
	"time"
)

// Signed token issued by TokenManager, AuthService
type IssuedToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
