package domain

import "context"

type principalKey struct{}

// ContextPrincipal is the authenticated caller as established by the auth
// middleware: "user" when a JWT was presented, "service_principal" for an
// API key. Services read it for audit attribution and admin checks.
type ContextPrincipal struct {
	Name    string
	IsAdmin bool
	Type    string
}

// WithPrincipal attaches the caller identity to the request context.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller identity, if authentication ran.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}
