package groups

import (
	"net/http"

	"billbuddy/internal/api/handlers"
	"billbuddy/internal/services/ledger"
	"billbuddy/pkg/utils"

	"github.com/shopspring/decimal"
)

type SettlementHandler struct {
	Ledger *ledger.Service
}

// POST /groups/{id}/settlements
func (h *SettlementHandler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		PaidBy int64           `json:"paid_by"`
		PaidTo int64           `json:"paid_to"`
		Amount decimal.Decimal `json:"amount"`
		Date   string          `json:"date"`
	}
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Ledger.CreateSettlement(r.Context(), groupID, callerID, ledger.SettlementInput{
		PaidBy: req.PaidBy,
		PaidTo: req.PaidTo,
		Amount: req.Amount,
		Date:   req.Date,
	})
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSONWithWarnings(w, http.StatusCreated, "settlement recorded", res.Settlement, res.Warnings)
}

// GET /groups/{id}/settlements
func (h *SettlementHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	settlements, err := h.Ledger.ListSettlements(r.Context(), groupID, callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "settlements retrieved", settlements)
}

// GET /settlements/{id}
func (h *SettlementHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	settlementID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	settlement, err := h.Ledger.GetSettlement(r.Context(), settlementID, callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "settlement retrieved", settlement)
}

// GET /groups/{id}/balances
func (h *SettlementHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	balances, err := h.Ledger.ComputeBalances(r.Context(), groupID, callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "balances computed", balances)
}
