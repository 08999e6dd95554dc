package groups

import (
	"net/http"

	"billbuddy/internal/api/handlers"
	groupsvc "billbuddy/internal/services/groups"
	"billbuddy/pkg/utils"
)

type GroupHandler struct {
	Groups *groupsvc.Service
}

// POST /groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}

	var req groupsvc.GroupInput
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	group, err := h.Groups.Create(r.Context(), callerID, req)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, "group created", group)
}

// GET /groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}

	groups, err := h.Groups.ListForUser(r.Context(), callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "groups retrieved", groups)
}

// GET /groups/{id}
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	group, err := h.Groups.Get(r.Context(), groupID, callerID)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "group retrieved", group)
}

// DELETE /groups/{id}
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Groups.Delete(r.Context(), groupID, callerID); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "group deleted", nil)
}

// POST /groups/{id}/members
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}

	var req groupsvc.MemberInput
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	member, err := h.Groups.AddMember(r.Context(), groupID, callerID, req)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, "member added", member)
}

// DELETE /groups/{id}/members/{userId}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID, ok := handlers.CallerID(w, r)
	if !ok {
		return
	}
	groupID, ok := handlers.PathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := handlers.PathID(w, r, "userId")
	if !ok {
		return
	}

	if err := h.Groups.RemoveMember(r.Context(), groupID, callerID, userID); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, "member removed", nil)
}
