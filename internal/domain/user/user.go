// Package user defines account types and the repository contract for the
// storefront's registered customers.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for user lookups and registration.
var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email already registered")
	ErrBadPassword = errors.New("invalid email or password")
)

// User is a registered customer. PasswordHash holds a bcrypt hash and is
// never serialized to API responses.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	ID      string
	Name    string
	IsAdmin bool
}

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
