package server

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/api"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/generate"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/history"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/mindmap"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/profile"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/config"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/eventbus"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/observability"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/sqlite"
	"github.com/matiasleandrokruk/smartdraw/pkg/jsonrepair"
)

const (
	serviceName     = "smartdraw"
	defaultProvider = "server"
)

// New opens the database, wires every service and returns a server ready to
// Start. The server default provider is registered only when cfg.LLM is
// complete; otherwise requests must carry a config or rely on a profile.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	stopTracing, err := observability.SetupTracing(ctx, cfg.Tracing.OTLPEndpoint, serviceName, version)
	if err != nil {
		return nil, fmt.Errorf("server: tracing: %w", err)
	}

	db, err := sqlite.Open(ctx, cfg.DB.Path)
	if err != nil {
		_ = stopTracing(ctx)
		return nil, fmt.Errorf("server: database: %w", err)
	}

	metrics := observability.NewCollector()
	router, err := newProviderRouter(cfg, metrics, logger)
	if err != nil {
		_ = db.Close()
		_ = stopTracing(ctx)
		return nil, err
	}

	bus := eventbus.New(logger.Named("eventbus"))
	historySvc := history.NewService(sqlite.NewHistoryStore(db), logger.Named("history"))
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := historySvc.Start(consumerCtx, bus)

	profileSvc := profile.NewService(sqlite.NewProfileStore(db))
	validator := mindmap.NewValidator(cfg.Mindmap.MaxDepth)
	generateSvc := generate.NewService(router,
		generate.WithProfiles(profileSvc),
		generate.WithPublisher(bus),
		generate.WithRecorder(metrics),
		generate.WithMindmapValidator(validator),
		generate.WithLogger(logger.Named("generate")),
	)

	handler := api.NewRouter(api.Dependencies{
		Generate:       generateSvc,
		Profiles:       profileSvc,
		History:        historySvc,
		Providers:      router,
		Validator:      validator,
		Repairer:       jsonrepair.Default,
		Metrics:        metrics,
		Logger:         logger.Named("http"),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Version:        version,
	})

	// Pending history events are drained before the database closes.
	drainHistory := func(ctx context.Context) error {
		bus.Close()
		defer stopConsumer()
		select {
		case <-consumerDone:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("history consumer: %w", ctx.Err())
		}
	}

	httpCfg := Config{
		Host:         cfg.HTTP.Host,
		Port:         cfg.HTTP.Port,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	return NewServer(db, httpCfg, handler, logger, drainHistory, ShutdownHook(stopTracing)), nil
}

func newProviderRouter(cfg config.Config, metrics *observability.Collector, logger *zap.Logger) (*llm.Router, error) {
	opts := []llm.Option{
		llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
		llm.WithLogger(logger.Named("llm")),
		llm.WithStreamMetrics(metrics),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
	}

	providers := map[string]llm.Provider{}
	if def, ok := cfg.ServerLLM(); ok {
		p, err := llm.NewProvider(def, opts...)
		if err != nil {
			return nil, fmt.Errorf("server: default provider: %w", err)
		}
		providers[defaultProvider] = llm.NewBreakerProvider(defaultProvider, p, cfg.BreakerSettings(), logger)
		logger.Info("default provider configured", zap.String("kind", string(def.Kind)), zap.String("model", def.Model))
	} else {
		logger.Info("no default provider configured; requests need a config or an active profile")
	}
	return llm.NewRouter(providers, defaultProvider, cfg.BreakerSettings(), logger, opts...), nil
}
