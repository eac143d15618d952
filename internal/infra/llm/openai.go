package llm

import (
	"context"
	"encoding/json"
)

// openAIProvider speaks the OpenAI-compatible chat completions protocol.
type openAIProvider struct {
	cfg  ProviderConfig
	opts options
}

func newOpenAIProvider(cfg ProviderConfig, o options) *openAIProvider {
	return &openAIProvider{cfg: cfg, opts: o}
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openAIContentPart
}

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

func (p *openAIProvider) Kind() ProviderKind { return KindOpenAI }

func (p *openAIProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
}

// StreamChat calls POST {base}/chat/completions with stream=true.
func (p *openAIProvider) StreamChat(ctx context.Context, req ChatRequest, onFragment FragmentHandler) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	msgs := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = toOpenAIMessage(m)
	}
	body, err := json.Marshal(openAIChatRequest{Model: model, Messages: msgs, Stream: true})
	if err != nil {
		return nil, err
	}

	resp, err := openStream(ctx, p.opts.httpClient, KindOpenAI, joinURL(p.cfg.BaseURL, "/chat/completions"), p.headers(), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	dec := StreamDecoder{Kind: KindOpenAI, Logger: p.opts.logger, Metrics: p.opts.metrics}
	return dec.Decode(ctx, resp.Body, onFragment)
}

// ListModels calls GET {base}/models.
func (p *openAIProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	raw, err := getJSON(ctx, p.opts.httpClient, KindOpenAI, joinURL(p.cfg.BaseURL, "/models"), p.headers())
	if err != nil {
		return nil, err
	}
	return parseModelList(raw)
}

func toOpenAIMessage(m Message) openAIMessage {
	if m.Image == nil {
		return openAIMessage{Role: m.Role, Content: m.Content}
	}
	return openAIMessage{
		Role: m.Role,
		Content: []openAIContentPart{
			{Type: "text", Text: m.Content},
			{Type: "image_url", ImageURL: &openAIImageURL{
				URL:    "data:" + m.Image.MimeType + ";base64," + m.Image.Data,
				Detail: "high",
			}},
		},
	}
}
