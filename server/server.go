package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"optihome/config"
	"optihome/services"
	"optihome/storage"
	"optihome/utils"
)

// PipelineStarter launches async scrape runs; the scrape pipeline
// satisfies it.
type PipelineStarter interface {
	Start(kind string, pages int) (string, error)
}

// Server serves the dashboard API.
type Server struct {
	cfg        *config.Config
	logger     *utils.Logger
	store      storage.PropertyStore
	stats      *services.StatsService
	translator *services.BinTranslator
	status     *services.StatusTracker
	pipeline   PipelineStarter

	httpServer *http.Server
}

// New wires the API server.
func New(
	cfg *config.Config,
	logger *utils.Logger,
	store storage.PropertyStore,
	stats *services.StatsService,
	translator *services.BinTranslator,
	status *services.StatusTracker,
	pipeline PipelineStarter,
) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		stats:      stats,
		translator: translator,
		status:     status,
		pipeline:   pipeline,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/properties", s.handleListProperties)
		r.Get("/properties/stats", s.handleStats)
		r.Post("/properties/stats/{attribute}/select", s.handleSelectBin)
		r.Post("/scrape/run", s.handleScrapeRun)
		r.Get("/scrape/status", s.handleScrapeStatus)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ServerAddr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] Listening on %s", s.cfg.ServerAddr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("[server] %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}
