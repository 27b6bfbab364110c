package middleware

import "context"

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxEmail    contextKey = "email"
	ctxAccessID contextKey = "access_id"
	ctxStoreID  contextKey = "store_id"
	ctxRole     contextKey = "actor_role"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func UserIDFromContext(ctx context.Context) string   { return stringValue(ctx, ctxUserID) }
func EmailFromContext(ctx context.Context) string    { return stringValue(ctx, ctxEmail) }
func AccessIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxAccessID) }
func StoreIDFromContext(ctx context.Context) string  { return stringValue(ctx, ctxStoreID) }
func RoleFromContext(ctx context.Context) string     { return stringValue(ctx, ctxRole) }

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithStoreID injects the store identifier into the context for downstream handlers.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreID, storeID)
}

// WithIdentity seeds the authenticated caller into ctx.
func WithIdentity(ctx context.Context, userID, email, accessID string) context.Context {
	ctx = WithUserID(ctx, userID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	return context.WithValue(ctx, ctxAccessID, accessID)
}

func withRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRole, role)
}
