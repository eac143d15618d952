package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/history"
)

type HistoryService interface {
	List(ctx context.Context, limit, offset int) (history.Page, error)
	Get(ctx context.Context, id string) (history.Record, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) (int64, error)
}

type HistoryHandler struct {
	service HistoryService
}

func NewHistoryHandler(service HistoryService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// Meta contains pagination metadata.
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type listHistoryResponse struct {
	Data []history.Record `json:"data"`
	Meta Meta             `json:"meta"`
}

// ListHistory handles GET /api/v1/history, newest first.
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)
	res, err := h.service.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit := page.Limit
	if limit == 0 {
		limit = history.DefaultPageSize
	}
	writeJSON(w, http.StatusOK, listHistoryResponse{
		Data: res.Items,
		Meta: Meta{Total: res.Total, Limit: min(limit, history.MaxPageSize), Offset: page.Offset},
	})
}

// GetHistory handles GET /api/v1/history/{id}
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteHistory handles DELETE /api/v1/history/{id}
func (h *HistoryHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory handles DELETE /api/v1/history
func (h *HistoryHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Clear(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
