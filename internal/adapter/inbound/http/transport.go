package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPTransport is the inbound adapter that exposes the PDP over HTTP:
// GET /getDecision, GET /health, GET /metrics, and (via WithAdminHandler)
// the /admin/ introspection routes. It carries no caller-identity
// middleware of its own, since /getDecision callers are PIPs/PEPs with no
// bearer credential; admin authentication, where enabled, is applied to
// the handler passed to WithAdminHandler before it ever reaches Start.
type HTTPTransport struct {
	decisionHandler *DecisionHandler
	healthChecker   *HealthChecker
	adminHandler    http.Handler
	server          *http.Server
	addr            string
	allowedOrigins  []string
	logger          *slog.Logger
	registry        *prometheus.Registry
	metrics         *Metrics
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address. Defaults to "127.0.0.1:8080".
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) { t.addr = addr }
}

// WithAllowedOrigins sets the CORS/DNS-rebinding allowlist for browser
// callers of /getDecision and /admin.
func WithAllowedOrigins(origins []string) Option {
	return func(t *HTTPTransport) { t.allowedOrigins = origins }
}

// WithLogger sets the base logger every request is enriched from.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) { t.logger = logger }
}

// WithHealthChecker installs the /health handler.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *HTTPTransport) { t.healthChecker = hc }
}

// WithAdminHandler mounts h under /admin/.
func WithAdminHandler(h http.Handler) Option {
	return func(t *HTTPTransport) { t.adminHandler = h }
}

// NewHTTPTransport builds an HTTPTransport serving decisionHandler at
// GET /getDecision.
func NewHTTPTransport(decisionHandler *DecisionHandler, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		decisionHandler: decisionHandler,
		addr:            "127.0.0.1:8080",
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start builds the route mux and blocks serving it until ctx is cancelled
// or the listener errors.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.registry = prometheus.NewRegistry()
	t.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(t.registry)
	t.decisionHandler.metrics = t.metrics

	decisionChain := RecoveryMiddleware(t.logger)(
		RequestIDMiddleware(t.logger)(
			DNSRebindingProtection(t.allowedOrigins)(t.decisionHandler),
		),
	)

	mux := http.NewServeMux()
	mux.Handle("/getDecision", decisionChain)
	if t.adminHandler != nil {
		adminChain := RecoveryMiddleware(t.logger)(
			RequestIDMiddleware(t.logger)(
				DNSRebindingProtection(t.allowedOrigins)(t.adminHandler),
			),
		)
		mux.Handle("/admin/", adminChain)
	}
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry}))

	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		t.logger.Info("starting HTTP server", "addr", t.addr)
		err := t.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}
	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts the transport down outside of Start's own
// context-cancellation path (used by tests and signal handlers that
// don't otherwise hold the ctx passed to Start).
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
