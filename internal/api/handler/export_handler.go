package handler

import (
	"net/http"

	"labdesk/internal/app/service"
	"labdesk/internal/common"

	"github.com/go-chi/chi/v5"
)

// ExportHandler is mounted under the admin routes.
type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.enqueue)
	r.Get("/{jobID}", h.status)
	r.Get("/{jobID}/download", h.download)
}

func (h *ExportHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	cu, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	job, err := h.exportService.Enqueue(r.Context(), cu, req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, job)
}

func (h *ExportHandler) status(w http.ResponseWriter, r *http.Request) {
	job, err := h.exportService.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, job)
}

func (h *ExportHandler) download(w http.ResponseWriter, r *http.Request) {
	job, csv, err := h.exportService.Download(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+job.Resource+`-`+job.ID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(csv))
}
