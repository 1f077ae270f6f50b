package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/tenet/internal/api/handlers"
	mw "github.com/Harshitk-cp/tenet/internal/api/middleware"
	"github.com/Harshitk-cp/tenet/internal/buildconfig"
	"github.com/Harshitk-cp/tenet/internal/config"
	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/Harshitk-cp/tenet/internal/embedding"
	"github.com/Harshitk-cp/tenet/internal/events"
	"github.com/Harshitk-cp/tenet/internal/llm"
	"github.com/Harshitk-cp/tenet/internal/service"
	"github.com/Harshitk-cp/tenet/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router, the event hub and request metrics.
type App struct {
	Router       *chi.Mux
	Hub          *events.Hub
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	personaStore := store.NewPersonaStore(db)
	beliefStore := store.NewBeliefStore(db)
	stanceStore := store.NewStanceStore(db)
	reviewStore := store.NewReviewStore(db)

	// External clients via provider factory
	var embeddingClient domain.EmbeddingClient
	var llmClient domain.LLMClient

	var err error
	llmClient, err = llm.NewClient(config.LLMProvider(), config.LLMAPIKey(), config.GovernorMaxTokens())
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.String("provider", config.LLMProvider()), zap.Error(err))
	} else {
		logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))
	}

	embeddingClient, err = embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed", zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	hub := events.NewHub(logger)

	// Services
	stanceSvc := service.NewStanceService(beliefStore, stanceStore, embeddingClient, hub, logger)
	graphSvc := service.NewGraphService(beliefStore, config.AutoLinkMinWeight(), logger)
	moderationSvc := service.NewModerationService(reviewStore, personaStore, hub, service.ModerationRules{
		MinLength:      config.ModerationMinLength(),
		MaxLength:      config.ModerationMaxLength(),
		BannedKeywords: config.ModerationBannedKeywords(),
	}, logger)
	governorSvc := service.NewGovernorService(personaStore, beliefStore, stanceSvc, llmClient, logger)

	// Wire edge suggestion into belief creation
	stanceSvc.SetAutoLinker(graphSvc)

	// Handlers
	personaHandler := handlers.NewPersonaHandler(personaStore, stanceSvc)
	beliefHandler := handlers.NewBeliefHandler(stanceSvc, graphSvc)
	moderationHandler := handlers.NewModerationHandler(moderationSvc)
	governorHandler := handlers.NewGovernorHandler(governorSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Hub:       hub,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Persona creation (no auth, bootstrap endpoint)
	r.Post("/v1/personas", personaHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(personaStore))

		r.Route("/personas", func(r chi.Router) {
			r.Put("/autopost", personaHandler.SetAutoPosting)
			r.Delete("/", personaHandler.Delete)
		})

		r.Route("/beliefs", func(r chi.Router) {
			r.Get("/graph", beliefHandler.Graph)
			r.Post("/", beliefHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", beliefHandler.GetByID)
				r.Put("/", beliefHandler.ManualUpdate)
				r.Post("/nudge", beliefHandler.Nudge)
				r.Post("/lock", beliefHandler.Lock)
				r.Post("/unlock", beliefHandler.Unlock)
				r.Post("/auto", beliefHandler.AutoUpdate)
				r.Post("/edges", beliefHandler.CreateEdge)
			})
		})

		r.Route("/moderation", func(r chi.Router) {
			r.Post("/evaluate", moderationHandler.Evaluate)
			r.Post("/queue", moderationHandler.Enqueue)
			r.Get("/queue", moderationHandler.ListPending)
		})

		r.Route("/governor", func(r chi.Router) {
			r.Post("/ask", governorHandler.Ask)
			r.Post("/consistency", governorHandler.CheckConsistency)
			r.Post("/proposals/approve", governorHandler.ApproveProposal)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"version":    buildconfig.Version(),
			"commit":     buildconfig.Commit(),
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.PersonaStore    = (*store.PersonaStore)(nil)
	_ domain.BeliefStore     = (*store.BeliefStore)(nil)
	_ domain.StanceStore     = (*store.StanceStore)(nil)
	_ domain.ReviewStore     = (*store.ReviewStore)(nil)
	_ domain.EventPublisher  = (*events.Hub)(nil)
	_ domain.EventPublisher  = (*events.LogPublisher)(nil)
	_ domain.LLMClient       = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient       = (*llm.AnthropicClient)(nil)
	_ domain.LLMClient       = (*llm.MockClient)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ service.AutoLinker     = (*service.GraphService)(nil)
)
