// Package server exposes workflow execution over HTTP. It is a thin layer:
// requests are decoded into workflow descriptions, handed to the flowmesh
// Service, and the outcome (or the incremental step stream) is written back.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hupe1980/flowmesh"
	"github.com/hupe1980/flowmesh/logging"
)

// Options configure a Server.
type Options struct {
	// Logger receives request logs and handler errors.
	Logger logging.Logger

	// ReadTimeout bounds reading the request including the body.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the response. Keep generous: workflow
	// executions and SSE streams can run for minutes.
	WriteTimeout time.Duration
}

// Server serves the workflow HTTP API.
type Server struct {
	svc    *flowmesh.Service
	logger logging.Logger
	http   *http.Server
}

// New creates a Server for the given service listening on addr.
func New(svc *flowmesh.Service, addr string, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{
		svc:    svc,
		logger: opts.Logger,
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return s
}

// Handler returns the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /workflow", s.handleWorkflow)
	mux.HandleFunc("POST /workflow/viz", s.handleWorkflowViz)
	mux.HandleFunc("GET /workflow/runs", s.handleListRuns)
	mux.HandleFunc("GET /workflow/runs/{id}", s.handleGetRun)
	mux.HandleFunc("POST /agent", s.handleAgent)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
	)
}

// ListenAndServe starts serving and blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
