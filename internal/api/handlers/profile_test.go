package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/profile"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/sqlite"
)

// newProfileServer serves the profile routes over an in-memory database.
func newProfileServer(t *testing.T) (http.Handler, *profile.Service) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := profile.NewService(sqlite.NewProfileStore(db))
	h := NewProfileHandler(svc)
	r := chi.NewRouter()
	r.Route("/api/v1/profiles", func(r chi.Router) {
		r.Post("/", h.CreateProfile)
		r.Get("/", h.ListProfiles)
		r.Get("/active", h.ActiveProfile)
		r.Get("/{id}", h.GetProfile)
		r.Put("/{id}", h.UpdateProfile)
		r.Delete("/{id}", h.DeleteProfile)
		r.Post("/{id}/activate", h.ActivateProfile)
	})
	return r, svc
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeProfile(t *testing.T, rr *httptest.ResponseRecorder) profile.Profile {
	t.Helper()
	var p profile.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

const profileBody = `{"name":"%s","type":"openai","baseUrl":"https://api.openai.com/v1","apiKey":"sk-abcdefgh1234","model":"gpt-4o"}`

func createProfile(t *testing.T, h http.Handler, name string) profile.Profile {
	t.Helper()
	rr := serve(h, http.MethodPost, "/api/v1/profiles", strings.Replace(profileBody, "%s", name, 1))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeProfile(t, rr)
}

func TestProfileHandler_CreateMasksKey(t *testing.T) {
	t.Parallel()

	h, _ := newProfileServer(t)
	p := createProfile(t, h, "primary")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "********1234", p.APIKey)
	assert.True(t, p.Active, "first profile becomes active")

	list := serve(h, http.MethodGet, "/api/v1/profiles", "")
	require.Equal(t, http.StatusOK, list.Code)
	assert.NotContains(t, list.Body.String(), "sk-abcdefgh1234")
}

func TestProfileHandler_CreateValidation(t *testing.T) {
	t.Parallel()

	h, _ := newProfileServer(t)
	rr := serve(h, http.MethodPost, "/api/v1/profiles", `{"name":"","type":"palm","baseUrl":"not a url"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Fields, "Name")
	assert.Contains(t, resp.Fields, "Kind")
	assert.Contains(t, resp.Fields, "BaseURL")
}

func TestProfileHandler_UpdateKeepsMaskedKey(t *testing.T) {
	t.Parallel()

	h, svc := newProfileServer(t)
	p := createProfile(t, h, "primary")

	body := `{"name":"renamed","type":"anthropic","baseUrl":"https://api.anthropic.com/v1","apiKey":"********1234","model":"claude"}`
	rr := serve(h, http.MethodPut, "/api/v1/profiles/"+p.ID, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "renamed", decodeProfile(t, rr).Name)

	stored, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-abcdefgh1234", stored.APIKey)
	assert.Equal(t, "claude", stored.Model)

	body = `{"name":"renamed","type":"anthropic","baseUrl":"https://api.anthropic.com/v1","apiKey":"new-key-9999","model":"claude"}`
	require.Equal(t, http.StatusOK, serve(h, http.MethodPut, "/api/v1/profiles/"+p.ID, body).Code)
	stored, err = svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-key-9999", stored.APIKey)
}

func TestProfileHandler_ActivateAndDelete(t *testing.T) {
	t.Parallel()

	h, _ := newProfileServer(t)
	first := createProfile(t, h, "first")
	second := createProfile(t, h, "second")
	assert.False(t, second.Active)

	rr := serve(h, http.MethodPost, "/api/v1/profiles/"+second.ID+"/activate", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeProfile(t, rr).Active)

	active := serve(h, http.MethodGet, "/api/v1/profiles/active", "")
	require.Equal(t, http.StatusOK, active.Code)
	assert.Equal(t, second.ID, decodeProfile(t, active).ID)

	require.Equal(t, http.StatusNoContent, serve(h, http.MethodDelete, "/api/v1/profiles/"+second.ID, "").Code)
	active = serve(h, http.MethodGet, "/api/v1/profiles/active", "")
	require.Equal(t, http.StatusOK, active.Code)
	assert.Equal(t, first.ID, decodeProfile(t, active).ID)
}

func TestProfileHandler_NotFound(t *testing.T) {
	t.Parallel()

	h, _ := newProfileServer(t)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v1/profiles/active", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v1/profiles/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodPut, "/api/v1/profiles/missing", strings.Replace(profileBody, "%s", "x", 1)).Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodDelete, "/api/v1/profiles/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodPost, "/api/v1/profiles/missing/activate", "").Code)
}
