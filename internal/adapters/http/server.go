package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/longregen/geoqa/internal/adapters/http/handlers"
	"github.com/longregen/geoqa/internal/adapters/http/middleware"
	"github.com/longregen/geoqa/internal/config"
	"github.com/longregen/geoqa/internal/ports"
	"github.com/longregen/geoqa/internal/prompt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the routes need. Repo, DB and LLM may be nil.
type Deps struct {
	Version   string
	Module    prompt.Module
	Signature prompt.Signature
	Repo      ports.ExampleRepository
	IDGen     ports.IDGenerator
	DB        handlers.Pinger
	LLM       handlers.BreakerReporter
	Metrics   prompt.MetricsCollector
	Logger    *slog.Logger
}

type Server struct {
	config     *config.Config
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.CORS(s.config.Server.CORSOrigins))
	r.Use(middleware.Metrics)

	health := handlers.NewHealthHandler(s.deps.Version, s.deps.DB, s.deps.LLM)
	r.Get("/health", health.Handle)
	r.Get("/health/detailed", health.HandleDetailed)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		signature := handlers.NewSignatureHandler(s.deps.Signature)
		r.Get("/signature", signature.Get)

		predict := handlers.NewPredictHandler(s.deps.Module, s.deps.Signature, s.deps.IDGen, s.logger)
		r.Post("/predict", predict.Predict)

		if s.deps.Repo != nil {
			datasets := handlers.NewDatasetsHandler(
				s.deps.Repo,
				s.deps.IDGen,
				s.deps.Module,
				s.config.Eval.InputKeys,
				s.deps.Metrics,
				s.logger,
			)
			r.Get("/datasets/{name}/examples", datasets.List)
			r.Post("/datasets/{name}/examples", datasets.Create)
			r.Post("/datasets/{name}/evaluate", datasets.Evaluate)
			r.Get("/examples/{id}", datasets.Get)
			r.Delete("/examples/{id}", datasets.Delete)
		}
	})

	s.router = r
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
		// writes cover a full LLM round trip
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}
