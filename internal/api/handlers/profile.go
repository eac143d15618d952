package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/profile"
)

type ProfileService interface {
	Create(ctx context.Context, in profile.Input) (profile.Profile, error)
	Update(ctx context.Context, id string, in profile.Input) (profile.Profile, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]profile.Profile, error)
	Get(ctx context.Context, id string) (profile.Profile, error)
	Activate(ctx context.Context, id string) (profile.Profile, error)
	Active(ctx context.Context) (profile.Profile, error)
}

// ProfileHandler serves saved provider profiles. API keys never leave the
// server unmasked.
type ProfileHandler struct {
	service ProfileService
}

func NewProfileHandler(service ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// CreateProfile handles POST /api/v1/profiles
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profile.Input
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Masked())
}

// ListProfiles handles GET /api/v1/profiles
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]profile.Profile, len(all))
	for i, p := range all {
		out[i] = p.Masked()
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// GetProfile handles GET /api/v1/profiles/{id}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Masked())
}

// UpdateProfile handles PUT /api/v1/profiles/{id}. An empty or still-masked
// apiKey keeps the stored key.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req profile.Input
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.APIKey == profile.MaskKey(existing.APIKey) {
		req.APIKey = ""
	}
	req.APIKey = coalesce(req.APIKey, existing.APIKey)

	p, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Masked())
}

// DeleteProfile handles DELETE /api/v1/profiles/{id}
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateProfile handles POST /api/v1/profiles/{id}/activate
func (h *ProfileHandler) ActivateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Masked())
}

// ActiveProfile handles GET /api/v1/profiles/active
func (h *ProfileHandler) ActiveProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Active(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Masked())
}
