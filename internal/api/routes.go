// Package api wires the HTTP surface: global middleware, the public probes
// and the /api/v1 routes served by the browser canvas.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/smartdraw/internal/api/middleware"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/mindmap"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/observability"
	"github.com/matiasleandrokruk/smartdraw/pkg/jsonrepair"
)

// Dependencies are the services behind the routes. Metrics and Logger are
// optional.
type Dependencies struct {
	Generate  handlers.GenerateService
	Profiles  handlers.ProfileService
	History   handlers.HistoryService
	Providers handlers.ProviderResolver

	Validator *mindmap.Validator
	Repairer  jsonrepair.Repairer

	Metrics        *observability.Collector
	Logger         *zap.Logger
	AllowedOrigins []string
	Version        string
}

// NewRouter creates and configures a new chi router with all routes.
func NewRouter(deps Dependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	var metrics apmiddleware.HTTPMetrics
	if deps.Metrics != nil {
		metrics = deps.Metrics
	}
	r.Use(apmiddleware.AccessLog(logger, metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(deps.AllowedOrigins)))

	// ===== PROBES =====

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + deps.Version + `"}`))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// ===== API =====

	r.Route("/api/v1", func(r chi.Router) {
		tools := handlers.NewToolsHandler(deps.Validator, deps.Repairer, logger)
		r.Post("/layout/mindmap", tools.LayoutMindmap) // POST /api/v1/layout/mindmap
		r.Post("/optimize", tools.Optimize)            // POST /api/v1/optimize
		r.Post("/repair", tools.Repair)                // POST /api/v1/repair

		if deps.Generate != nil {
			gen := handlers.NewGenerateHandler(deps.Generate, logger)
			r.Post("/generate", gen.Generate) // POST /api/v1/generate (SSE)
			r.Post("/mindmap", gen.Mindmap)   // POST /api/v1/mindmap
			r.Get("/chart-types", gen.ChartTypes)
		}

		if deps.Providers != nil {
			models := handlers.NewModelsHandler(deps.Providers, logger)
			r.Get("/models", models.ListModels)
			r.Post("/configs/test-connection", models.TestConnection)
		}

		if deps.Profiles != nil {
			profiles := handlers.NewProfileHandler(deps.Profiles)
			r.Route("/profiles", func(r chi.Router) {
				r.Post("/", profiles.CreateProfile)
				r.Get("/", profiles.ListProfiles)
				r.Get("/active", profiles.ActiveProfile)
				r.Get("/{id}", profiles.GetProfile)
				r.Put("/{id}", profiles.UpdateProfile)
				r.Delete("/{id}", profiles.DeleteProfile)
				r.Post("/{id}/activate", profiles.ActivateProfile)
			})
		}

		if deps.History != nil {
			hist := handlers.NewHistoryHandler(deps.History)
			r.Route("/history", func(r chi.Router) {
				r.Get("/", hist.ListHistory)
				r.Delete("/", hist.ClearHistory)
				r.Get("/{id}", hist.GetHistory)
				r.Delete("/{id}", hist.DeleteHistory)
			})
		}
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}
