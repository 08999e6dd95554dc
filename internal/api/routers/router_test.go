package routers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"billbuddy/internal/api/handlers/auth"
	"billbuddy/internal/api/handlers/groups"
	"billbuddy/internal/api/handlers/notifications"
	mw "billbuddy/internal/api/middlewares"
	"billbuddy/internal/metrics"
	"billbuddy/internal/models"
	"billbuddy/internal/notifier"
	"billbuddy/internal/repositories/groupstore"
	"billbuddy/internal/repositories/ledgerstore"
	"billbuddy/internal/repositories/sessionstore"
	"billbuddy/internal/repositories/userstore"
	groupsvc "billbuddy/internal/services/groups"
	"billbuddy/internal/services/identity"
	"billbuddy/internal/services/ledger"
	"billbuddy/internal/testutil"
	"billbuddy/pkg/utils"

	"github.com/shopspring/decimal"
)

type queueStub struct {
	sent []notifier.Email
}

func (q *queueStub) Enqueue(e notifier.Email) error {
	q.sent = append(q.sent, e)
	return nil
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type server struct {
	t       *testing.T
	handler http.Handler
	queue   *queueStub
	metrics *metrics.Metrics
}

func newServer(t *testing.T) (*server, map[string]int64) {
	t.Helper()
	db := testutil.NewDB(t)
	queue := &queueStub{}
	m := metrics.New()

	users := userstore.New()
	gstore := groupstore.New()
	ids := map[string]int64{}
	for _, email := range []string{"alice@example.com", "bob@example.com"} {
		hash, err := utils.HashPassword("password123")
		if err != nil {
			t.Fatal(err)
		}
		u := models.User{Email: email, FirstName: strings.Split(email, "@")[0], Password: hash, IsActive: true, CreatedAt: "2025-01-01 00:00:00"}
		if err := users.Create(context.Background(), db, &u); err != nil {
			t.Fatal(err)
		}
		ids[email] = u.ID
	}

	idSvc := identity.NewService(db, users, sessionstore.NewMemory(), queue, identity.Options{
		JWTSecret:      "jwt-secret",
		JWTTTL:         time.Hour,
		TokenSecret:    "token-secret",
		VerifyTokenTTL: time.Hour,
		ResetTokenTTL:  time.Hour,
		AppURL:         "http://localhost",
	})
	ledgerSvc := ledger.NewService(db, ledgerstore.New(), gstore, users, queue, ledger.WithMetrics(m))

	h := Handlers{
		Auth:          &auth.Handler{Identity: idSvc},
		Groups:        &groups.GroupHandler{Groups: groupsvc.NewService(db, gstore, users)},
		Expenses:      &groups.ExpenseHandler{Ledger: ledgerSvc},
		Settlements:   &groups.SettlementHandler{Ledger: ledgerSvc},
		Notifications: &notifications.Handler{Ledger: ledgerSvc},
		DB:            db,
		Metrics:       m,
		AuthLimiter:   mw.NewRateLimiter(100, 100),
	}
	return &server{t: t, handler: Handler(h, idSvc), queue: queue, metrics: m}, ids
}

func (s *server) do(method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, env
}

func (s *server) login(email string) string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/users/login", "", fmt.Sprintf(`{"email":%q,"password":"password123"}`, email))
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &session); err != nil || session.Token == "" {
		s.t.Fatalf("login %s: no token in %s", email, env.Data)
	}
	if c := rec.Result().Cookies(); len(c) == 0 || c[0].Name != auth.CookieName {
		s.t.Fatalf("login %s: session cookie not set", email)
	}
	return session.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestGroupExpenseSettlementFlow(t *testing.T) {
	s, ids := newServer(t)
	alice := s.login("alice@example.com")
	bob := s.login("bob@example.com")

	rec, env := s.do(http.MethodPost, "/groups", alice, `{"name":"Trip"}`)
	if rec.Code != http.StatusCreated || !env.Success {
		t.Fatalf("create group: %d %s", rec.Code, rec.Body.String())
	}
	group := decode[models.GroupDetail](t, env.Data)

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/groups/%d/members", group.ID), alice, `{"email":"bob@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = s.do(http.MethodPost, fmt.Sprintf("/groups/%d/expenses", group.ID), alice,
		`{"description":"Dinner","amount":"30.00","date":"2025-01-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: %d %s", rec.Code, rec.Body.String())
	}
	expense := decode[models.ExpenseWithShares](t, env.Data)
	if len(expense.Shares) != 2 {
		t.Fatalf("shares = %+v", expense.Shares)
	}

	rec, env = s.do(http.MethodGet, fmt.Sprintf("/groups/%d/balances", group.ID), bob, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("balances: %d %s", rec.Code, rec.Body.String())
	}
	balances := decode[models.GroupBalances](t, env.Data)
	if len(balances.Balances) != 1 {
		t.Fatalf("balances = %+v", balances.Balances)
	}
	b := balances.Balances[0]
	if b.Debtor != ids["bob@example.com"] || b.Creditor != ids["alice@example.com"] || !b.Amount.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("balance = %+v", b)
	}

	rec, env = s.do(http.MethodPost, fmt.Sprintf("/groups/%d/settlements", group.ID), bob,
		fmt.Sprintf(`{"paid_to":%d,"amount":"15"}`, ids["alice@example.com"]))
	if rec.Code != http.StatusCreated || len(env.Errors) != 0 {
		t.Fatalf("settle: %d %s", rec.Code, rec.Body.String())
	}
	if len(s.queue.sent) != 1 || s.queue.sent[0].To != "alice@example.com" {
		t.Fatalf("queued = %+v", s.queue.sent)
	}

	_, env = s.do(http.MethodGet, fmt.Sprintf("/groups/%d/balances", group.ID), alice, "")
	if got := decode[models.GroupBalances](t, env.Data); len(got.Balances) != 0 {
		t.Fatalf("balances after settlement = %+v", got.Balances)
	}

	rec, env = s.do(http.MethodGet, "/notifications?limit=5", alice, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("notifications: %d %s", rec.Code, rec.Body.String())
	}
	page := decode[ledger.NotificationPage](t, env.Data)
	if len(page.Items) != 1 || page.Unread != 1 || page.Limit != 5 {
		t.Fatalf("page = %+v", page)
	}

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/notifications/%d/read", page.Items[0].ID), bob, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("mark other's notification: %d", rec.Code)
	}
	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/notifications/%d/read", page.Items[0].ID), alice, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRequestValidation(t *testing.T) {
	s, _ := newServer(t)
	alice := s.login("alice@example.com")

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unknown field", http.MethodPost, "/groups", `{"name":"x","colour":"red"}`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/groups", "", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/groups/abc", "", http.StatusBadRequest},
		{"unknown group", http.MethodGet, "/groups/999/balances", "", http.StatusNotFound},
		{"unknown expense", http.MethodGet, "/expenses/999", "", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/groups", "", http.StatusMethodNotAllowed},
		{"exponent amount", http.MethodPost, "/groups/999/expenses", `{"description":"x","amount":"1e-300000000"}`, http.StatusBadRequest},
		{"huge exponent amount", http.MethodPost, "/groups/999/settlements", `{"paid_to":1,"amount":"1e300000000"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := s.do(tt.method, tt.path, alice, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAuthenticationRequired(t *testing.T) {
	s, _ := newServer(t)

	rec, env := s.do(http.MethodGet, "/groups", "", "")
	if rec.Code != http.StatusUnauthorized || env.Success {
		t.Fatalf("no token: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}

	rec, _ = s.do(http.MethodGet, "/groups", "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", rec.Code)
	}

	rec, _ = s.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}

	token := s.login("alice@example.com")
	rec, _ = s.do(http.MethodPost, "/users/logout", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = s.do(http.MethodGet, "/groups", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: %d", rec.Code)
	}
}

func TestMetricsOnlyOnInternalRouter(t *testing.T) {
	s, _ := newServer(t)
	s.do(http.MethodGet, "/healthz", "", "")

	rec, _ := s.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("public /metrics without token: %d, want 401", rec.Code)
	}
	alice := s.login("alice@example.com")
	rec, _ = s.do(http.MethodGet, "/metrics", alice, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("public /metrics with token: %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	MetricsRouter(s.metrics).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("internal metrics: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="GET /healthz"`) {
		t.Fatalf("request metric missing route label:\n%s", rec.Body.String())
	}
}
