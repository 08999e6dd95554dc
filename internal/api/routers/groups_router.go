package routers

import (
	"net/http"

	"billbuddy/internal/api/handlers/groups"
)

func groupsRouter(mux *http.ServeMux, h *groups.GroupHandler) {
	mux.HandleFunc("POST /groups", h.CreateGroup)
	mux.HandleFunc("GET /groups", h.ListGroups)
	mux.HandleFunc("GET /groups/{id}", h.GetGroup)
	mux.HandleFunc("DELETE /groups/{id}", h.DeleteGroup)

	mux.HandleFunc("POST /groups/{id}/members", h.AddMember)
	mux.HandleFunc("DELETE /groups/{id}/members/{userId}", h.RemoveMember)
}
