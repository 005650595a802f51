// Package identity provides the user-identity collaborator consumed by the
// business object stores. Create operations are gated on a current user;
// everything else only uses it to stamp ownership.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity describes the authenticated actor.
type Identity struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

// Provider resolves the current user for an operation. The boolean is false
// when no authenticated actor is present.
type Provider interface {
	CurrentUser(ctx context.Context) (*Identity, bool)
}

type ctxKey struct{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil && id.ID != ""
}

// ContextProvider resolves identity from the request context, populated by
// the HTTP auth middleware.
type ContextProvider struct{}

// CurrentUser implements Provider.
func (ContextProvider) CurrentUser(ctx context.Context) (*Identity, bool) {
	return FromContext(ctx)
}

// StaticProvider always resolves to a fixed identity. Used by tooling and
// tests; a nil user models the unauthenticated state.
type StaticProvider struct {
	User *Identity
}

// CurrentUser implements Provider.
func (p StaticProvider) CurrentUser(ctx context.Context) (*Identity, bool) {
	if p.User == nil || p.User.ID == "" {
		return nil, false
	}
	return p.User, true
}

// ParseToken validates a signed JWT bearer token and maps its claims to an
// Identity. Only HMAC-signed tokens are accepted.
func ParseToken(tokenString, secret string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	id := &Identity{}
	if sub, err := claims.GetSubject(); err == nil {
		id.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	if id.ID == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}
	return id, nil
}

// IssueToken signs a JWT for the given identity. Primarily used by tests and
// local tooling; production tokens come from the upstream auth service.
func IssueToken(id *Identity, secret string, expirySeconds int) (string, error) {
	claims := jwt.MapClaims{
		"sub":   id.ID,
		"email": id.Email,
		"name":  id.Name,
	}
	if len(id.Roles) > 0 {
		roles := make([]any, 0, len(id.Roles))
		for _, r := range id.Roles {
			roles = append(roles, r)
		}
		claims["roles"] = roles
	}
	if expirySeconds != 0 {
		claims["exp"] = jwt.NewNumericDate(time.Now().Add(time.Duration(expirySeconds) * time.Second))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
