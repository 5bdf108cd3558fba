// Package api assembles the orchestrator's HTTP surface: the huma /v0 API,
// the metrics endpoint, and the middleware around them.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/modelserve-dev/modelserve/internal/api/router"
	"github.com/modelserve-dev/modelserve/internal/config"
	"github.com/modelserve-dev/modelserve/internal/fabric"
	"github.com/modelserve-dev/modelserve/internal/images"
	"github.com/modelserve-dev/modelserve/internal/logging"
	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	"github.com/modelserve-dev/modelserve/internal/orchestrator"
	"github.com/modelserve-dev/modelserve/internal/telemetry"
	"github.com/modelserve-dev/modelserve/internal/version"
)

// Server is the orchestrator HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer wires the orchestrator components from configuration and mounts
// them behind the /v0 API.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	registryClient := mlregistry.NewHTTPClient(cfg.RegistryURI, cfg.RegistryPublicURI)
	fabricClient := fabric.NewHTTPClient(cfg.PlatformURL, cfg.PlatformToken)
	servingClient := mlregistry.NewHTTPServingClient(registryClient, logger.Named("serving"))

	promRegistry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(promRegistry)

	directory := orchestrator.NewDirectory(fabricClient, cfg.ControllerID, metrics, logger.Named("directory"))
	dispatcher := orchestrator.NewDispatcher(fabricClient, servingClient, orchestrator.DispatcherConfig{
		ControllerID:     cfg.ControllerID,
		RepoStorage:      cfg.ModelRepoStorage,
		RepoRoot:         cfg.ModelRepoRoot,
		PollInterval:     cfg.PollInterval,
		ReadinessTimeout: cfg.ReadinessTimeout,
	}, metrics, logger.Named("dispatcher"))
	fleet := orchestrator.NewFleet(directory, servingClient, fabricClient, logger.Named("fleet"))
	catalog := images.NewCatalog(fabricClient, logger.Named("images"))

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("ModelServe", version.Version)
	humaConfig.Info.Description = "Inference deployment orchestrator API."
	api := humago.New(mux, humaConfig)

	router.RegisterRoutes(api, router.Services{
		Dispatcher: dispatcher,
		Directory:  directory,
		Fleet:      fleet,
		Registry:   registryClient,
		Catalog:    catalog,
	})

	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	handler := cors.AllowAll().Handler(requestIDMiddleware(mux))

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// requestIDMiddleware assigns each request an id for log correlation, honoring
// one supplied by the caller.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(logging.SetRequestID(r.Context(), requestID)))
	})
}
