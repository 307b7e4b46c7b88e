package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated means the token is absent, malformed, badly signed,
	// expired or carries no user id.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized means the token is valid but its user no longer exists.
	ErrUnauthorized = errors.New("unauthorized")
)

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID string
}

// UserLookup confirms that a user id still exists.
type UserLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

// Verifier checks bearer tokens. It keeps no state besides the signing secret.
type Verifier struct {
	secret string
	users  UserLookup
}

func NewVerifier(secret string, users UserLookup) *Verifier {
	return &Verifier{secret: secret, users: users}
}

// Verify resolves a raw or "Bearer "-prefixed token to a Principal.
func (v *Verifier) Verify(ctx context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	claims, err := ParseToken(token, v.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	userID := claims.PrincipalID()
	if userID == "" {
		return nil, fmt.Errorf("%w: token has no user id", ErrUnauthenticated)
	}

	exists, err := v.users.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: unknown user", ErrUnauthorized)
	}
	return &Principal{UserID: userID}, nil
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
