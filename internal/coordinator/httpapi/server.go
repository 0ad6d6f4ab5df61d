package httpapi

import (
	"net/http"

	"github.com/thesamsai/transcode-dispatch/internal/coordinator/config"
	"github.com/thesamsai/transcode-dispatch/internal/coordinator/registry"
	"github.com/thesamsai/transcode-dispatch/internal/platform/logger"
)

// NewServer builds the coordinator's *http.Server, wiring cfg's bind
// address onto the handler built by NewHandler.
func NewServer(cfg *config.Config, log *logger.Logger, reg *registry.Registry) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: NewHandler(log, reg),
	}
}

// NewHandler wires the worker-facing control surface (spec.md section 4.4)
// onto a stdlib ServeMux, wrapped in the recover -> access-log -> request-id
// middleware chain.
func NewHandler(log *logger.Logger, reg *registry.Registry) http.Handler {
	h := &handler{reg: reg, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /stats", h.handleStats)

	mux.HandleFunc("GET /register", h.handleRegister)
	mux.HandleFunc("GET /ping", requireWorkerID(h.handlePing))
	mux.HandleFunc("GET /pull", requireWorkerID(h.handlePull))
	mux.HandleFunc("GET /push", requireWorkerID(h.handlePush))
	mux.HandleFunc("POST /failure", h.handleFailure)
	mux.HandleFunc("GET /info", h.handleInfo)
	mux.HandleFunc("GET /{$}", h.handleIndex)

	var wrapped http.Handler = mux
	wrapped = recoverMiddleware(log)(wrapped)
	wrapped = accessLogMiddleware(log)(wrapped)
	wrapped = requestIDMiddleware()(wrapped)
	return wrapped
}
