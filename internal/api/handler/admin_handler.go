package handler

import (
	"net/http"

	"labdesk/internal/app/service"
	"labdesk/internal/common"

	"github.com/go-chi/chi/v5"
)

// AdminHandler serves user management. The router mounts it behind
// authentication and middleware.AdminOnly.
type AdminHandler struct {
	userService *service.UserService
}

func NewAdminHandler(userService *service.UserService) *AdminHandler {
	return &AdminHandler{userService: userService}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/", h.createUser)
	r.Post("/{userID}/block", h.toggleBlock)
	r.Put("/{userID}/password", h.changePassword)
	r.Delete("/{userID}", h.deleteUser)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	q, err := listQueryFromRequest(r)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	page, err := h.userService.ListUsers(r.Context(), q)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.userService.CreateUser(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, user)
}

func (h *AdminHandler) toggleBlock(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.userService.ToggleBlock(r.Context(), actor, chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req service.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.userService.ChangePassword(r.Context(), chi.URLParam(r, "userID"), req); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(r.Context(), actor, chi.URLParam(r, "userID")); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
