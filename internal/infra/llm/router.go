package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Router selects a Provider for each request: a named, pre-registered one
// (the server default) or one built from a request-supplied config.
// Built providers are wrapped in a circuit breaker shared per endpoint.
type Router struct {
	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string

	opts     []Option
	breaker  BreakerConfig
	logger   *zap.Logger
	breakers map[string]*breakerState
}

// NewRouter creates a Router with an initial set of providers and a default key.
// opts are applied to providers built by Resolve.
func NewRouter(providers map[string]Provider, defaultProvider string, breaker BreakerConfig, logger *zap.Logger, opts ...Option) *Router {
	ps := make(map[string]Provider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		providers:       ps,
		defaultProvider: defaultProvider,
		opts:            opts,
		breaker:         breaker,
		logger:          logger,
		breakers:        make(map[string]*breakerState),
	}
}

// Register adds (or replaces) a provider under the given key.
func (r *Router) Register(key string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[key] = p
}

// Route returns the default provider.
func (r *Router) Route(_ context.Context) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[r.defaultProvider]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q not registered (available: %v)", ErrNoProvider, r.defaultProvider, r.keys())
	}
	return p, nil
}

// Resolve builds a provider for cfg, or falls back to Route when cfg is nil.
func (r *Router) Resolve(ctx context.Context, cfg *ProviderConfig) (Provider, error) {
	if cfg == nil {
		return r.Route(ctx)
	}
	p, err := NewProvider(*cfg, r.opts...)
	if err != nil {
		return nil, err
	}
	return &BreakerProvider{next: p, state: r.breakerFor(*cfg)}, nil
}

func (r *Router) breakerFor(cfg ProviderConfig) *breakerState {
	key := string(cfg.Kind) + "|" + cfg.BaseURL
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[key]; ok {
		return b
	}
	b := newBreakerState(key, r.breaker, r.logger)
	r.breakers[key] = b
	return b
}

// keys returns the registered provider names (for error messages).
func (r *Router) keys() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
