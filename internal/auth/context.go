package auth

import "context"

type contextKey string

const (
	contextKeyUserID contextKey = "auth.user_id"
	contextKeyRole   contextKey = "auth.role"
)

// WithIdentity attaches the authenticated identity to the context.
func WithIdentity(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID, userID)
	return context.WithValue(ctx, contextKeyRole, role)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(contextKeyUserID).(string); ok {
		return value
	}
	return ""
}

// RoleFromContext returns the authenticated role, if any.
func RoleFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(contextKeyRole).(string); ok {
		return value
	}
	return ""
}
