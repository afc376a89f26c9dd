package handler

import (
	"net/http"

	"labdesk/internal/app/service"
	"labdesk/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
	authn       Middleware
}

func NewUserHandler(userService *service.UserService, authn Middleware) *UserHandler {
	return &UserHandler{userService: userService, authn: authn}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/by-handle/{handle}", h.getByHandle)

	r.Group(func(private chi.Router) {
		private.Use(h.authn)
		private.Get("/me", h.getProfile)
		private.Put("/me", h.updateProfile)
	})
}

func (h *UserHandler) getByHandle(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(r.Context(), cu.ID)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.userService.UpdateProfile(r.Context(), cu.ID, req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}
