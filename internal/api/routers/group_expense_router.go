package routers

import (
	"net/http"

	"billbuddy/internal/api/handlers/groups"
)

func groupExpenseRouter(mux *http.ServeMux, e *groups.ExpenseHandler, s *groups.SettlementHandler) {
	mux.HandleFunc("POST /groups/{id}/expenses", e.CreateExpense)
	mux.HandleFunc("GET /groups/{id}/expenses", e.ListExpenses)
	mux.HandleFunc("GET /expenses/{id}", e.GetExpense)
	mux.HandleFunc("PUT /expenses/{id}", e.UpdateExpense)
	mux.HandleFunc("PATCH /expenses/{id}", e.UpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", e.DeleteExpense)
	mux.HandleFunc("GET /expenses/{id}/shares", e.ListShares)

	mux.HandleFunc("POST /groups/{id}/settlements", s.CreateSettlement)
	mux.HandleFunc("GET /groups/{id}/settlements", s.ListSettlements)
	mux.HandleFunc("GET /settlements/{id}", s.GetSettlement)

	mux.HandleFunc("GET /groups/{id}/balances", s.GetBalances)
}
