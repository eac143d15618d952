package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig configures the per-endpoint circuit breaker.
type BreakerConfig struct {
	MaxRequests  uint32        // requests allowed while half-open
	Interval     time.Duration // closed-state counter reset period
	Timeout      time.Duration // open-state duration before half-open
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig trips after 60% failures over at least 5 requests.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  2,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

type breakerState struct {
	cb *gobreaker.CircuitBreaker
}

func newBreakerState(name string, cfg BreakerConfig, logger *zap.Logger) *breakerState {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state changed",
				zap.String("endpoint", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: countsAsSuccess,
	})
	return &breakerState{cb: cb}
}

// countsAsSuccess keeps request-level failures (4xx, caller cancellation)
// from tripping the breaker; only provider-health failures count.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return !te.Retryable()
	}
	return false
}

// BreakerProvider guards a Provider with a circuit breaker.
type BreakerProvider struct {
	next  Provider
	state *breakerState
}

// NewBreakerProvider wraps next with its own breaker.
func NewBreakerProvider(name string, next Provider, cfg BreakerConfig, logger *zap.Logger) *BreakerProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakerProvider{next: next, state: newBreakerState(name, cfg, logger)}
}

func (b *BreakerProvider) Kind() ProviderKind { return b.next.Kind() }

// State exposes the breaker state for health reporting.
func (b *BreakerProvider) State() gobreaker.State { return b.state.cb.State() }

func (b *BreakerProvider) StreamChat(ctx context.Context, req ChatRequest, onFragment FragmentHandler) (*ChatResponse, error) {
	res, err := b.state.cb.Execute(func() (interface{}, error) {
		return b.next.StreamChat(ctx, req, onFragment)
	})
	if err != nil {
		if isBreakerRejection(err) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}
	resp, _ := res.(*ChatResponse)
	return resp, err
}

func (b *BreakerProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	res, err := b.state.cb.Execute(func() (interface{}, error) {
		return b.next.ListModels(ctx)
	})
	if err != nil {
		if isBreakerRejection(err) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}
	models, _ := res.([]ModelInfo)
	return models, nil
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
