package handler

import (
	"net/http"

	"labdesk/internal/app/service"
	"labdesk/internal/common"

	"github.com/go-chi/chi/v5"
)

type FeedbackHandler struct {
	feedbackService *service.FeedbackService
	authn           Middleware
}

func NewFeedbackHandler(feedbackService *service.FeedbackService, authn Middleware) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService, authn: authn}
}

func (h *FeedbackHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{feedbackID}", h.get)

	r.Group(func(private chi.Router) {
		private.Use(h.authn)
		private.Post("/", h.create)
		private.Put("/{feedbackID}", h.update)
		private.Delete("/{feedbackID}", h.delete)
	})
}

func (h *FeedbackHandler) list(w http.ResponseWriter, r *http.Request) {
	q, err := listQueryFromRequest(r)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	page, err := h.feedbackService.List(r.Context(), q)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *FeedbackHandler) get(w http.ResponseWriter, r *http.Request) {
	f, err := h.feedbackService.Get(r.Context(), chi.URLParam(r, "feedbackID"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, f)
}

func (h *FeedbackHandler) create(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.feedbackService.Create(r.Context(), cu, req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, f)
}

func (h *FeedbackHandler) update(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.feedbackService.Update(r.Context(), cu, chi.URLParam(r, "feedbackID"), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, f)
}

func (h *FeedbackHandler) delete(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.feedbackService.Delete(r.Context(), cu, chi.URLParam(r, "feedbackID")); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
