package handler

import (
	"net/http"

	"labdesk/internal/app/service"
	"labdesk/internal/common"
	"labdesk/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// PreferenceHandler is mounted behind authentication.
type PreferenceHandler struct {
	prefService *service.PreferenceService
}

func NewPreferenceHandler(prefService *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefService: prefService}
}

func (h *PreferenceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Post("/theme/toggle", h.toggleTheme)
	r.Put("/theme", h.setTheme)
	r.Put("/columns/{table}", h.setColumns)
	r.Post("/columns/{table}/move", h.moveColumn)
	r.Delete("/columns/{table}", h.resetColumns)
}

func (h *PreferenceHandler) respond(w http.ResponseWriter, p *model.Preferences, err error) {
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, p)
}

func (h *PreferenceHandler) get(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.prefService.Get(r.Context(), cu.ID)
	h.respond(w, p, err)
}

func (h *PreferenceHandler) toggleTheme(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.prefService.ToggleTheme(r.Context(), cu.ID)
	h.respond(w, p, err)
}

func (h *PreferenceHandler) setTheme(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.prefService.SetTheme(r.Context(), cu.ID, req)
	h.respond(w, p, err)
}

func (h *PreferenceHandler) setColumns(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.ColumnOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.prefService.SetColumnOrder(r.Context(), cu.ID, chi.URLParam(r, "table"), req)
	h.respond(w, p, err)
}

func (h *PreferenceHandler) moveColumn(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.MoveColumnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.prefService.MoveColumn(r.Context(), cu.ID, chi.URLParam(r, "table"), req)
	h.respond(w, p, err)
}

func (h *PreferenceHandler) resetColumns(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.prefService.ResetColumns(r.Context(), cu.ID, chi.URLParam(r, "table"))
	h.respond(w, p, err)
}
