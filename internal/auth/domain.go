package auth

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when no account matches the lookup.
var ErrUserNotFound = errors.New("auth: user not found")

// User is an account allowed to sign in. Inactive users are refused at login.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository loads users and records server-side sessions in user_sessions.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}
