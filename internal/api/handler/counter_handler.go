package handler

import (
	"context"
	"net/http"

	"labdesk/internal/app/service"
	"labdesk/internal/common"

	"github.com/go-chi/chi/v5"
)

// CounterHandler is mounted behind authentication.
type CounterHandler struct {
	counterService *service.CounterService
}

func NewCounterHandler(counterService *service.CounterService) *CounterHandler {
	return &CounterHandler{counterService: counterService}
}

type counterResponse struct {
	Value int64 `json:"value"`
}

func (h *CounterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handle(h.counterService.Get))
	r.Post("/increment", h.handle(h.counterService.Increment))
	r.Post("/decrement", h.handle(h.counterService.Decrement))
	r.Post("/reset", h.handle(h.counterService.Reset))
}

func (h *CounterHandler) handle(op func(ctx context.Context, userID string) (int64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cu, ok := currentUser(w, r)
		if !ok {
			return
		}
		v, err := op(r.Context(), cu.ID)
		if err != nil {
			common.RespondWithErr(w, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, counterResponse{Value: v})
	}
}
