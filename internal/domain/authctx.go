package domain

import "context"

type authCtxKey struct{}

// ContextWithAuth attaches a resolved caller identity to a request context.
func ContextWithAuth(ctx context.Context, auth AuthorizationContext) context.Context {
	return context.WithValue(ctx, authCtxKey{}, auth)
}

// AuthFromContext extracts the caller identity set by the identity
// middleware. The second return is false for unauthenticated requests.
func AuthFromContext(ctx context.Context) (AuthorizationContext, bool) {
	auth, ok := ctx.Value(authCtxKey{}).(AuthorizationContext)
	return auth, ok
}
