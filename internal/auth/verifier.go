package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidJWTToken   = errors.New("JWT token is invalid")
	ErrExpiredJWTToken   = errors.New("JWT token is expired")
	ErrUnknownSigningKey = errors.New("JWT token signed with unknown key")
)

// Identity is the verified subject of a bearer token.
type Identity struct {
	UID   string
	Email string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
