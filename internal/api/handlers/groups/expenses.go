package groups

import (
	"net/http"

	"billbuddy/internal/api/handlers"
	"billbuddy/internal/services/ledger"
	"billbuddy/pkg/utils"

	"github.com/shopspring/decimal"
)

type ExpenseHandler struct {
	Ledger *ledger.Service
}

// POST /groups/{id}/expenses
func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Date        string          `json:"date"`
	}
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	expense, err := h.Ledger.CreateExpense(r.Context(), groupID, callerID, ledger.ExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
	})
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, "expense created", expense)
}

// GET /groups/{id}/expenses
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	expenses, err := h.Ledger.ListExpenses(r.Context(), groupID, callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "expenses retrieved", expenses)
}

// GET /expenses/{id}
func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	expenseID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	expense, err := h.Ledger.GetExpense(r.Context(), expenseID, callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "expense retrieved", expense)
}

// PUT and PATCH /expenses/{id}. Both accept a partial body.
func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	expenseID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Description *string          `json:"description"`
		Amount      *decimal.Decimal `json:"amount"`
		Date        *string          `json:"date"`
	}
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	expense, err := h.Ledger.UpdateExpense(r.Context(), expenseID, callerID, ledger.ExpenseUpdate{
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
	})
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "expense updated", expense)
}

// DELETE /expenses/{id}
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	expenseID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Ledger.DeleteExpense(r.Context(), expenseID, callerID); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "expense deleted", nil)
}

// GET /expenses/{id}/shares
func (h *ExpenseHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	expenseID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	shares, err := h.Ledger.ListShares(r.Context(), expenseID, callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "shares retrieved", shares)
}
