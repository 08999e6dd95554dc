package routers

import (
	"net/http"

	"billbuddy/internal/api/handlers/notifications"
)

func notificationsRouter(mux *http.ServeMux, h *notifications.Handler) {
	mux.HandleFunc("GET /notifications", h.ListNotifications)
	mux.HandleFunc("POST /notifications/{id}/read", h.MarkRead)
}
