package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Provider is the model-agnostic interface the generation pipeline talks to.
// Adapters implement it so the application is never coupled to one vendor.
type Provider interface {
	// StreamChat sends the conversation and decodes the event stream, calling
	// onFragment once per text fragment in arrival order.
	StreamChat(ctx context.Context, req ChatRequest, onFragment FragmentHandler) (*ChatResponse, error)

	// ListModels returns the models the endpoint advertises.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Kind reports the wire protocol.
	Kind() ProviderKind
}

// Option customises adapters built by NewProvider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
	metrics    StreamMetrics
	maxTokens  int
}

// WithHTTPClient replaces the default client (no overall timeout; streams are
// bounded by the request context).
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithLogger sets the logger used for skipped frames.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithStreamMetrics records fragment and skipped-frame counts.
func WithStreamMetrics(m StreamMetrics) Option { return func(o *options) { o.metrics = m } }

// WithMaxTokens sets the completion budget for providers that require one.
func WithMaxTokens(n int) Option { return func(o *options) { o.maxTokens = n } }

const defaultAnthropicMaxTokens = 64000

func buildOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 2 * time.Minute,
			IdleConnTimeout:       90 * time.Second,
		}},
		logger:    zap.NewNop(),
		maxTokens: defaultAnthropicMaxTokens,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// NewProvider builds the adapter matching cfg.Kind.
func NewProvider(cfg ProviderConfig, opts ...Option) (Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("llm: base URL is required")
	}
	kind, err := ParseProviderKind(string(cfg.Kind))
	if err != nil {
		return nil, err
	}
	cfg.Kind = kind
	o := buildOptions(opts)
	if kind == KindAnthropic {
		return newAnthropicProvider(cfg, o), nil
	}
	return newOpenAIProvider(cfg, o), nil
}
