// Package observability wires structured tracing and metrics for the
// slicing controller: a thin wrapper over OpenTelemetry tracing (noop
// when disabled) and the Prometheus recorder in metrics.go.
package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls which observability features are active. The zero
// value disables everything: Setup(ctx, Config{}) is always safe.
type Config struct {
	Service   string // service name, used as the tracer name; metrics do not carry it
	TraceAddr string // non-empty enables the stdout trace exporter
	LogAddr   string // reserved for a future log-shipping exporter; unused today
	Metrics   bool   // enables the Prometheus recorder
}

var (
	mu             sync.Mutex
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	metricsOn      bool
	serviceName    string
)

// Setup installs the configured exporters. Call once at startup; safe to
// call with a zero Config to run fully disabled.
func Setup(ctx context.Context, cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	serviceName = cfg.Service
	metricsOn = cfg.Metrics

	if cfg.TraceAddr == "" {
		tracer = nil
		tracerProvider = nil
		return nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("observability: stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	tracerProvider = tp
	tracer = tp.Tracer(cfg.Service)
	return nil
}

// Shutdown flushes and tears down any installed trace provider. Safe to
// call even if Setup ran with tracing disabled.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := tracerProvider
	tracerProvider = nil
	tracer = nil
	mu.Unlock()

	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// Enabled reports whether tracing is active.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return tracer != nil
}

// MetricsEnabled reports whether the Prometheus recorder is active.
func MetricsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return metricsOn
}

// Span wraps a trace.Span so callers can record errors/events without
// checking Enabled() themselves; every method is a no-op when tracing is
// disabled.
type Span struct {
	span  trace.Span
	onEnd []func()
}

// Start begins a span named name, a no-op span when tracing is disabled.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	return StartWith(ctx, name)
}

// Option configures a span at Start time.
type Option func(*startOptions)

type startOptions struct {
	attrs  []attribute.KeyValue
	onEnd  []func()
}

// Attrs attaches attribute.KeyValue pairs to the span at creation.
func Attrs(kvs ...attribute.KeyValue) Option {
	return func(o *startOptions) { o.attrs = append(o.attrs, kvs...) }
}

// OnStart runs fn synchronously during StartWith, before the span is
// returned — useful for test assertions and side-effecting setup that
// must happen exactly once per span.
func OnStart(fn func()) Option {
	return func(o *startOptions) { fn() }
}

// OnEnd registers fn to run when the returned Span's End is called.
func OnEnd(fn func()) Option {
	return func(o *startOptions) { o.onEnd = append(o.onEnd, fn) }
}

// StartWith begins a span with options applied.
func StartWith(ctx context.Context, name string, opts ...Option) (context.Context, *Span) {
	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}

	mu.Lock()
	t := tracer
	mu.Unlock()

	if t == nil {
		return ctx, &Span{onEnd: o.onEnd}
	}

	ctx, sp := t.Start(ctx, name, trace.WithAttributes(o.attrs...))
	return ctx, &Span{span: sp, onEnd: o.onEnd}
}

// End completes the span and runs any OnEnd callbacks.
func (s *Span) End() {
	if s == nil {
		return
	}
	for _, fn := range s.onEnd {
		fn()
	}
	if s.span != nil {
		s.span.End()
	}
}

// Error records err on the span, if non-nil. Safe to call with a nil err
// or a disabled span.
func (s *Span) Error(err error, msg string) {
	if s == nil || s.span == nil || err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, msg)
}

// Event adds a named span event with attributes.
func (s *Span) Event(name string, kvs ...attribute.KeyValue) {
	if s == nil || s.span == nil {
		return
	}
	s.span.AddEvent(name, trace.WithAttributes(kvs...))
}

// Set attaches attributes to the span directly.
func (s *Span) Set(kvs ...attribute.KeyValue) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetAttributes(kvs...)
}

// Str builds a string attribute.
func Str(key, value string) attribute.KeyValue { return attribute.String(key, value) }

// Num builds an int64 attribute.
func Num(key string, value int64) attribute.KeyValue { return attribute.Int64(key, value) }

// Domain-specific span/event attributes for the slicing controller.

// SliceName attaches the slice name under attribute key "netslice.slice".
func SliceName(name string) attribute.KeyValue { return attribute.String("netslice.slice", name) }

// Switch attaches a switch id under attribute key "netslice.switch".
func Switch(id int) attribute.KeyValue { return attribute.Int64("netslice.switch", int64(id)) }

// CapacityPct attaches a capacity percentage under "netslice.capacity_pct".
func CapacityPct(pct int) attribute.KeyValue {
	return attribute.Int64("netslice.capacity_pct", int64(pct))
}

// VictimCount attaches the number of preempted slices under
// "netslice.victims".
func VictimCount(n int) attribute.KeyValue { return attribute.Int64("netslice.victims", int64(n)) }
