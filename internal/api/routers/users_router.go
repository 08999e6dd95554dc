package routers

import (
	"net/http"

	"billbuddy/internal/api/handlers/auth"
	mw "billbuddy/internal/api/middlewares"
)

func usersRouter(mux *http.ServeMux, h *auth.Handler, limiter *mw.RateLimiter) {
	limited := func(fn http.HandlerFunc) http.Handler {
		if limiter == nil {
			return fn
		}
		return limiter.Middleware(fn)
	}

	mux.Handle("POST /users/signup", limited(h.Register))
	mux.HandleFunc("GET /users/verify", h.VerifyEmail)
	mux.Handle("POST /users/resend-verification", limited(h.ResendVerification))

	mux.Handle("POST /users/login", limited(h.Login))
	mux.HandleFunc("POST /users/logout", h.Logout)
	mux.Handle("POST /users/forgot-password", limited(h.ForgotPassword))
	mux.Handle("POST /users/reset-password", limited(h.ResetPassword))
}
