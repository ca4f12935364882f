// Package observability wires OpenTelemetry tracing and metrics for the
// PDP: one Provider bundling TracerProvider/MeterProvider construction
// plus RED instrumentation behind one New/Shutdown pair, exporting to
// stdout. Tracing and metrics are each independently toggled by
// config.ServerConfig and never change PDP.Evaluate's return value — a
// Provider with both off is a valid, fully inert zero-cost Provider.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Config selects which providers Provider actually constructs.
type Config struct {
	// ServiceName labels every span/metric this process emits.
	ServiceName string
	// Tracing enables the stdout trace exporter and a real Tracer.
	Tracing bool
	// Metrics enables the stdout metric exporter and a real Meter.
	Metrics bool
	// Writer receives the exported JSON lines. Defaults to os.Stderr so
	// stdout stays free for the MCP stdio transport.
	Writer io.Writer
}

// Provider owns the process-wide TracerProvider/MeterProvider and the
// RED (decisions-total, evaluation-duration) instruments that
// RecordDecision, called by the HTTP decision handler, records into. A Provider with Tracing and Metrics both false
// returns no-op implementations, so callers never need to nil-check it.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	tracer trace.Tracer
	meter  metric.Meter

	decisionsTotal metric.Int64Counter
	evalDuration   metric.Float64Histogram
}

// New builds a Provider per cfg. Returns a fully inert Provider (no-op
// tracer/meter) when both Tracing and Metrics are false — the common
// case in production, where Prometheus's always-on /metrics endpoint
// already covers the RED counters and OTel is a local-debugging opt-in.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{
		tracer: nooptrace.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noopmetric.NewMeterProvider().Meter(cfg.ServiceName),
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	if cfg.Tracing {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(writer), stdouttrace.WithoutTimestamps())
		if err != nil {
			return nil, fmt.Errorf("observability: build trace exporter: %w", err)
		}
		p.tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(time.Second)))
		p.tracer = p.tracerProvider.Tracer(cfg.ServiceName)
	}

	if cfg.Metrics {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(writer))
		if err != nil {
			return nil, fmt.Errorf("observability: build metric exporter: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))))
		p.meter = p.meterProvider.Meter(cfg.ServiceName)
	}

	var err error
	p.decisionsTotal, err = p.meter.Int64Counter("pdp.decisions", metric.WithDescription("Evaluations by decision result."))
	if err != nil {
		return nil, fmt.Errorf("observability: decisions counter: %w", err)
	}
	p.evalDuration, err = p.meter.Float64Histogram("pdp.evaluate.duration", metric.WithDescription("Evaluate call latency in seconds."), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("observability: duration histogram: %w", err)
	}

	if cfg.Tracing || cfg.Metrics {
		otel.SetTracerProvider(p.tracerProviderOrNoop())
	}

	return p, nil
}

func (p *Provider) tracerProviderOrNoop() trace.TracerProvider {
	if p.tracerProvider != nil {
		return p.tracerProvider
	}
	return nooptrace.NewTracerProvider()
}

// Tracer returns the Tracer PDP.EvaluateContext starts spans from.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// RecordDecision records one Evaluate outcome's decision string and
// wall-clock duration into the RED metrics.
func (p *Provider) RecordDecision(ctx context.Context, decision string, duration time.Duration) {
	p.decisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
	p.evalDuration.Record(ctx, duration.Seconds())
}

// Shutdown flushes and releases any exporters this Provider owns. Safe
// to call on a fully no-op Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if p.meterProvider != nil {
		return p.meterProvider.Shutdown(ctx)
	}
	return nil
}
