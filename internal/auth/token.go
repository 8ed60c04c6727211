// Package auth issues and verifies the bearer tokens that identify
// storefront users, and provides the HTTP middleware that attaches the
// authenticated identity to the request context.
package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/proshop/storefront/internal/domain/user"
)

// ErrInvalidToken is returned for tokens that are malformed, expired, signed
// with the wrong key, or missing required claims.
var ErrInvalidToken = errors.New("invalid token")

const tokenTTL = 7 * 24 * time.Hour

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
}

// NewTokens creates a token service with the given signing secret.
func NewTokens(secret []byte) *Tokens {
	return &Tokens{secret: secret}
}

// Issue signs a token carrying the user's identity, valid for 7 days.
func (t *Tokens) Issue(u *user.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      u.ID,
		"name":     u.Name,
		"is_admin": u.IsAdmin,
		"iat":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify parses and validates a token, returning the embedded identity.
func (t *Tokens) Verify(token string) (user.Identity, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return user.Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return user.Identity{}, ErrInvalidToken
	}

	id, _ := claims["sub"].(string)
	if id == "" {
		return user.Identity{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	isAdmin, _ := claims["is_admin"].(bool)

	return user.Identity{ID: id, Name: name, IsAdmin: isAdmin}, nil
}
