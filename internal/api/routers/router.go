package routers

import (
	"database/sql"
	"net/http"

	"billbuddy/internal/api/handlers"
	"billbuddy/internal/api/handlers/auth"
	"billbuddy/internal/api/handlers/groups"
	"billbuddy/internal/api/handlers/notifications"
	mw "billbuddy/internal/api/middlewares"
	"billbuddy/internal/metrics"
)

type Handlers struct {
	Auth          *auth.Handler
	Groups        *groups.GroupHandler
	Expenses      *groups.ExpenseHandler
	Settlements   *groups.SettlementHandler
	Notifications *notifications.Handler
	DB            *sql.DB
	Metrics       *metrics.Metrics
	AuthLimiter   *mw.RateLimiter
}

// Routes reachable without a session token.
var publicPaths = []string{
	"/healthz",
	"/users/signup",
	"/users/verify",
	"/users/resend-verification",
	"/users/login",
	"/users/forgot-password",
	"/users/reset-password",
}

func MainRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handlers.Health(h.DB))

	usersRouter(mux, h.Auth, h.AuthLimiter)
	groupsRouter(mux, h.Groups)
	groupExpenseRouter(mux, h.Expenses, h.Settlements)
	notificationsRouter(mux, h.Notifications)

	return mux
}

// MetricsRouter serves /metrics for the internal listener. It is never
// mounted on the public API.
func MetricsRouter(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	return mux
}

// Handler wraps the router with the full middleware chain.
func Handler(h Handlers, authn mw.Authenticator) http.Handler {
	mux := MainRouter(h)
	jwtMiddleware := mw.MiddlewaresExcludePaths(mw.JWTMiddleware(authn), publicPaths...)
	metricsMiddleware := mw.Metrics(h.Metrics, mux)
	return metricsMiddleware(mw.SecurityHeaders(jwtMiddleware(mux)))
}
