package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

type ProviderResolver interface {
	Resolve(ctx context.Context, cfg *llm.ProviderConfig) (llm.Provider, error)
}

// ModelsHandler lists provider models and probes provider configs.
type ModelsHandler struct {
	providers ProviderResolver
	logger    *zap.Logger
}

func NewModelsHandler(providers ProviderResolver, logger *zap.Logger) *ModelsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelsHandler{providers: providers, logger: logger}
}

// ListModels handles GET /api/v1/models?type=&baseUrl=&apiKey=. Without
// query parameters the server default provider is listed.
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var cfg *llm.ProviderConfig
	if q.Get("type") != "" || q.Get("baseUrl") != "" || q.Get("apiKey") != "" {
		c, msg := providerConfig(q.Get("type"), q.Get("baseUrl"), q.Get("apiKey"), "")
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		cfg = &c
	}

	p, err := h.providers.Resolve(r.Context(), cfg)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	models, err := p.ListModels(r.Context())
	if err != nil {
		h.logger.Error("list models failed", zap.String("provider", string(p.Kind())), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	if models == nil {
		models = []llm.ModelInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// TestConnection handles POST /api/v1/configs/test-connection. Provider
// failures are reported in the body with status 200.
func (h *ModelsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req llm.ProviderConfig
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg, msg := providerConfig(string(req.Kind), req.BaseURL, req.APIKey, req.Model)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.providers.Resolve(r.Context(), &cfg)
	if err != nil {
		writeJSON(w, http.StatusOK, llm.ConnectionResult{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, llm.TestConnection(r.Context(), p))
}

// providerConfig validates the endpoint fields; the message is empty when
// they are usable.
func providerConfig(kind, baseURL, apiKey, model string) (llm.ProviderConfig, string) {
	k, err := llm.ParseProviderKind(strings.TrimSpace(kind))
	if err != nil {
		return llm.ProviderConfig{}, "type must be openai or anthropic"
	}
	if strings.TrimSpace(baseURL) == "" {
		return llm.ProviderConfig{}, "baseUrl is required"
	}
	return llm.ProviderConfig{Kind: k, BaseURL: strings.TrimSpace(baseURL), APIKey: apiKey, Model: model}, ""
}
