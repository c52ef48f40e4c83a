package auth

import (
	"context"

	authlib "github.com/skozubek/startsnap/internal/platform/auth"
)

// Claims mirrors the shared auth claims type for service convenience.
type Claims = authlib.Claims

// Config mirrors the shared auth config.
type Config = authlib.Config

// WithClaims stores the claims in the request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return authlib.WithClaims(ctx, claims)
}

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}

// UserID returns the authenticated subject, or "" for anonymous callers.
func UserID(ctx context.Context) string {
	claims, ok := FromContext(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}
