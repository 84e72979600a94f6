// Command flowmesh runs the workflow orchestration HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/hupe1980/flowmesh"
	"github.com/hupe1980/flowmesh/config"
	"github.com/hupe1980/flowmesh/engine"
	"github.com/hupe1980/flowmesh/history"
	"github.com/hupe1980/flowmesh/logging"
	"github.com/hupe1980/flowmesh/model"
	"github.com/hupe1980/flowmesh/model/anthropic"
	"github.com/hupe1980/flowmesh/model/openai"
	"github.com/hupe1980/flowmesh/observability"
	"github.com/hupe1980/flowmesh/ratelimit"
	"github.com/hupe1980/flowmesh/server"
	"github.com/hupe1980/flowmesh/tool"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "flowmesh:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, false)

	spans, shutdownTracing, err := setupTracing(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	store, err := buildHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	limiter := ratelimit.New(func(o *ratelimit.Options) {
		o.MinInterval = cfg.RateInterval
	})

	tools := tool.NewRegistry()
	tools.Register(tool.NewCommandTool(cfg.WorkDir))

	svc := flowmesh.New(m, func(o *flowmesh.Options) {
		o.Logger = logger
		o.Spans = spans
		o.Limiter = limiter
		o.Tools = tools
		o.Functions = engine.NewDefaultFunctionRegistry(cfg.WorkDir)
		o.History = store
		o.WorkDir = cfg.WorkDir
	})

	srv := server.New(svc, cfg.Addr, func(o *server.Options) {
		o.Logger = logger
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func buildHistory(cfg *config.Config) (history.Store, error) {
	if cfg.HistoryPath == "" {
		return history.NewInMemoryStore(), nil
	}
	return history.NewSQLiteStore(cfg.HistoryPath)
}

// setupTracing configures the global tracer provider when an OTLP endpoint is
// set; otherwise tracing is disabled and a noop span manager is returned.
func setupTracing(cfg *config.Config, logger logging.Logger) (observability.SpanManager, func(), error) {
	if cfg.OTLPEndpoint == "" {
		return observability.NoopSpanManager{}, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("flowmesh"),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Tracer provider shutdown failed", "error", err)
		}
	}

	return observability.NewSpanManager(), shutdown, nil
}
