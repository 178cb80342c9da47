package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/politicianfinder/edge-gate/internal/config"
	"github.com/politicianfinder/edge-gate/internal/handlers"
	"github.com/politicianfinder/edge-gate/internal/middleware"
	"github.com/politicianfinder/edge-gate/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// newRouter mounts the gate on a subrouter per configured prefix. Paths outside the
// prefixes never reach the gate.
func newRouter(cfg *config.Config, log *zap.Logger, eg *edgeGate, health *handlers.HealthChecker, forward http.Handler, tracing bool) *mux.Router {
	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order; the first one is outermost.
	if tracing {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.RequestID)
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.MaxRequestSize(cfg.MaxRequestBytes, log))
	r.Use(middleware.Logging(log))

	r.HandleFunc("/healthz", health.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", handlers.VersionHandler).Methods(http.MethodGet)

	for _, prefix := range cfg.PathPrefixes {
		gated := r.PathPrefix(prefix).Subrouter()
		gated.Use(eg.gate.Middleware)
		gated.PathPrefix("/").Handler(forward)
	}

	return r
}
