package utils

import "context"

type ContextKey string

const (
	userIDKey  ContextKey = "userId"
	tokenIDKey ContextKey = "tokenId"
	expiresKey ContextKey = "expiresAt"
)

// WithCaller stores the authenticated caller on ctx.
func WithCaller(ctx context.Context, userID int64, tokenID string, expiresAt int64) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, tokenIDKey, tokenID)
	return context.WithValue(ctx, expiresKey, expiresAt)
}

// CallerID returns the authenticated user id placed on ctx by the JWT
// middleware.
func CallerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// CallerToken returns the session token id and its unix expiry.
func CallerToken(ctx context.Context) (string, int64) {
	jti, _ := ctx.Value(tokenIDKey).(string)
	exp, _ := ctx.Value(expiresKey).(int64)
	return jti, exp
}
