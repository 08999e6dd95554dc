package middlewares

import (
	"context"
	"net/http"
	"strings"

	"billbuddy/internal/services/identity"
	"billbuddy/pkg/utils"
)

// Authenticator resolves a session token to its caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.Caller, error)
}

// JWTMiddleware accepts the token from an Authorization header or the Bearer
// cookie set at login.
func JWTMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				utils.WriteError(w, "Unauthorized: Missing Bearer token", http.StatusUnauthorized)
				return
			}

			caller, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				utils.WriteServiceError(w, err)
				return
			}

			ctx := utils.WithCaller(r.Context(), caller.UserID, caller.TokenID, caller.ExpiresAt.Unix())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	cookie, err := r.Cookie("Bearer")
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(cookie.Value, "Bearer ")
}
