package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

type modelsProviderStub struct {
	models []llm.ModelInfo
	err    error
}

func (p *modelsProviderStub) StreamChat(context.Context, llm.ChatRequest, llm.FragmentHandler) (*llm.ChatResponse, error) {
	return nil, errors.New("not used")
}
func (p *modelsProviderStub) ListModels(context.Context) ([]llm.ModelInfo, error) { return p.models, p.err }
func (p *modelsProviderStub) Kind() llm.ProviderKind                              { return llm.KindOpenAI }

type resolverStub struct {
	provider llm.Provider
	err      error
	got      []*llm.ProviderConfig
}

func (r *resolverStub) Resolve(_ context.Context, cfg *llm.ProviderConfig) (llm.Provider, error) {
	r.got = append(r.got, cfg)
	return r.provider, r.err
}

func TestModelsHandler_ListModels_FromQuery(t *testing.T) {
	t.Parallel()

	r := &resolverStub{provider: &modelsProviderStub{models: []llm.ModelInfo{{ID: "gpt-4o", Name: "gpt-4o"}}}}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/models?type=openai-compatible&baseUrl=http://localhost:1234/v1&apiKey=k", nil)
	NewModelsHandler(r, nil).ListModels(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"models":[{"id":"gpt-4o","name":"gpt-4o"}]}`, rr.Body.String())
	require.Len(t, r.got, 1)
	require.NotNil(t, r.got[0])
	assert.Equal(t, llm.KindOpenAI, r.got[0].Kind)
	assert.Equal(t, "http://localhost:1234/v1", r.got[0].BaseURL)
}

func TestModelsHandler_ListModels_ServerDefault(t *testing.T) {
	t.Parallel()

	r := &resolverStub{provider: &modelsProviderStub{}}
	rr := httptest.NewRecorder()
	NewModelsHandler(r, nil).ListModels(rr, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"models":[]}`, rr.Body.String())
	assert.Nil(t, r.got[0])
}

func TestModelsHandler_ListModels_BadQuery(t *testing.T) {
	t.Parallel()

	h := NewModelsHandler(&resolverStub{}, nil)
	for _, target := range []string{
		"/api/v1/models?type=gemini&baseUrl=http://x",
		"/api/v1/models?type=openai",
	} {
		rr := httptest.NewRecorder()
		h.ListModels(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestModelsHandler_ListModels_ProviderError(t *testing.T) {
	t.Parallel()

	r := &resolverStub{provider: &modelsProviderStub{err: &llm.TransportError{Provider: llm.KindOpenAI, StatusCode: 403, Body: "forbidden"}}}
	rr := httptest.NewRecorder()
	NewModelsHandler(r, nil).ListModels(rr, httptest.NewRequest(http.MethodGet, "/api/v1/models?type=openai&baseUrl=http://x", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var resp transportErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 403, resp.Status)
	assert.Equal(t, "forbidden", resp.Detail)
}

func TestModelsHandler_TestConnection(t *testing.T) {
	t.Parallel()

	models := make([]llm.ModelInfo, 7)
	for i := range models {
		models[i] = llm.ModelInfo{ID: string(rune('a' + i))}
	}
	ok := &resolverStub{provider: &modelsProviderStub{models: models}}
	rr := httptest.NewRecorder()
	NewModelsHandler(ok, nil).TestConnection(rr, postJSON("/api/v1/configs/test-connection", `{"type":"anthropic","baseUrl":"https://api.anthropic.com/v1","apiKey":"k","model":"claude"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	var res llm.ConnectionResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Len(t, res.Models, 5)
	assert.Equal(t, llm.KindAnthropic, ok.got[0].Kind)
}

func TestModelsHandler_TestConnection_FailureIsReported(t *testing.T) {
	t.Parallel()

	failing := &resolverStub{provider: &modelsProviderStub{err: errors.New("connection refused")}}
	rr := httptest.NewRecorder()
	NewModelsHandler(failing, nil).TestConnection(rr, postJSON("/api/v1/configs/test-connection", `{"type":"openai","baseUrl":"http://x"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	var res llm.ConnectionResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "connection refused")

	rr = httptest.NewRecorder()
	NewModelsHandler(failing, nil).TestConnection(rr, postJSON("/api/v1/configs/test-connection", `{"type":"openai"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
