package llm

import (
	"context"
	"encoding/json"
	"strings"
)

const anthropicVersion = "2023-06-01"

// anthropicProvider speaks the Anthropic-compatible messages protocol.
type anthropicProvider struct {
	cfg  ProviderConfig
	opts options
}

func newAnthropicProvider(cfg ProviderConfig, o options) *anthropicProvider {
	return &anthropicProvider{cfg: cfg, opts: o}
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicContentBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []anthropicContentBlock
}

type anthropicChatRequest struct {
	Model       string                  `json:"model"`
	Messages    []anthropicMessage      `json:"messages"`
	System      []anthropicContentBlock `json:"system,omitempty"`
	MaxTokens   int                     `json:"max_tokens"`
	Stream      bool                    `json:"stream"`
	Temperature float64                 `json:"temperature"`
}

func (p *anthropicProvider) Kind() ProviderKind { return KindAnthropic }

func (p *anthropicProvider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}
}

// StreamChat calls POST {base}/messages with stream=true. System messages are
// lifted into the top-level system field.
func (p *anthropicProvider) StreamChat(ctx context.Context, req ChatRequest, onFragment FragmentHandler) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	var (
		system []string
		msgs   []anthropicMessage
	)
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, toAnthropicMessage(m))
	}

	payload := anthropicChatRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   p.opts.maxTokens,
		Stream:      true,
		Temperature: 1,
	}
	if len(system) > 0 {
		payload.System = []anthropicContentBlock{{Type: "text", Text: strings.Join(system, "\n\n")}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := openStream(ctx, p.opts.httpClient, KindAnthropic, joinURL(p.cfg.BaseURL, "/messages"), p.headers(), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	dec := StreamDecoder{Kind: KindAnthropic, Logger: p.opts.logger, Metrics: p.opts.metrics}
	return dec.Decode(ctx, resp.Body, onFragment)
}

// ListModels calls GET {base}/models with Anthropic headers.
func (p *anthropicProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	raw, err := getJSON(ctx, p.opts.httpClient, KindAnthropic, joinURL(p.cfg.BaseURL, "/models"), p.headers())
	if err != nil {
		return nil, err
	}
	return parseModelList(raw)
}

func toAnthropicMessage(m Message) anthropicMessage {
	role := RoleUser
	if m.Role == RoleAssistant {
		role = RoleAssistant
	}
	if m.Image == nil {
		return anthropicMessage{Role: role, Content: m.Content}
	}
	return anthropicMessage{
		Role: role,
		Content: []anthropicContentBlock{
			{Type: "text", Text: m.Content},
			{Type: "image", Source: &anthropicImageSource{
				Type:      "base64",
				MediaType: m.Image.MimeType,
				Data:      m.Image.Data,
			}},
		},
	}
}
