package notifications

import (
	"net/http"

	"billbuddy/internal/api/handlers"
	"billbuddy/internal/services/ledger"
	"billbuddy/pkg/utils"
)

type Handler struct {
	Ledger *ledger.Service
}

// GET /notifications?page=&limit=
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}

	page, err := h.Ledger.ListNotifications(r.Context(), callerID, ledger.Page{
		Page:  handlers.QueryInt(r, "page", 1),
		Limit: handlers.QueryInt(r, "limit", 0),
	})
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "notifications retrieved", page)
}

// POST /notifications/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	notificationID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.Ledger.MarkNotificationRead(r.Context(), notificationID, callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "notification marked as read", n)
}
