package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"schemabridge/internal/audit"
	"schemabridge/internal/config"
	"schemabridge/internal/schema"
)

type Server struct {
	cfg      config.Config
	logger   requestLogger
	registry *schema.Registry
	audit    *audit.Recorder
}

type requestLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

func New(cfg config.Config, logger requestLogger, registry *schema.Registry, recorder *audit.Recorder) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		audit:    recorder,
	}
}

func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddress,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.cfg.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

// Handler returns the routed API, for Start and for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestLogger(s.logger))

	schemas := &SchemaHandler{registry: s.registry, logger: s.logger}
	collections := &CollectionHandler{
		registry:      s.registry,
		logger:        s.logger,
		audit:         s.audit,
		allowRawWhere: s.cfg.AllowRawWhere,
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Method(http.MethodGet, "/health", HealthHandler{Conns: s.registry.Connections()})

		api.Get("/schemas", schemas.List)
		api.Get("/schemas/{name}", schemas.Get)
		api.Get("/connections/{name}/tables", schemas.Tables)

		api.Route("/collections/{schema}", func(c chi.Router) {
			c.Get("/", collections.List)
			c.Get("/one", collections.GetOne)
			c.Post("/", collections.Add)
			c.Patch("/", collections.Update)
			c.Delete("/", collections.Delete)
		})
	})

	return r
}
