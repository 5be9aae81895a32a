package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides a unified telemetry interface combining logging, tracing, metrics, and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	ctx = t.Logger.WithContext(ctx)
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}
	if err := t.Tracer.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}

// Flush forces all pending telemetry data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer()
}

// Context Helpers for common instrumentation patterns

// InstrumentedContext creates a context with telemetry, logger fields, and a trace span.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// StartOperation begins an instrumented operation with logging, tracing, and timing.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:    ctx,
			Logger: FromContext(ctx),
			Timer:  NewTimer(),
		}
	}

	spanCtx, span := tel.Tracer.StartSpan(ctx, operation, attrs...)

	logger := tel.Logger.WithField("operation", operation)
	if span.SpanContext().IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
		})
	}

	return &InstrumentedContext{
		Ctx:    spanCtx,
		Span:   span,
		Logger: logger,
		Timer:  NewTimer(),
	}
}

// End finishes the instrumented operation, recording success or failure.
func (ic *InstrumentedContext) End(err error) {
	if ic.Span != nil {
		if err != nil {
			RecordError(ic.Span, err)
		} else {
			RecordSuccess(ic.Span)
		}
		ic.Span.End()
	}
}

// WithUpdateWindowContext creates a context enriched with telemetry for an
// administrative update window (StartUpdate...EndUpdate).
func WithUpdateWindowContext(ctx context.Context, windowID, admin string) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}

	spanCtx, span := tel.Tracer.StartUpdateWindowSpan(ctx, windowID)

	logger := tel.Logger.WithWindowID(windowID).WithField("admin", admin)
	spanCtx = logger.WithContext(spanCtx)

	tel.Metrics.SetUpdateWindowOpen(true)
	_ = tel.Events.PublishUpdateWindowOpened(windowID, admin)

	spanCtx = context.WithValue(spanCtx, updateWindowSpanKey{}, span)

	return spanCtx
}

// updateWindowSpanKey is the context key for update-window spans.
type updateWindowSpanKey struct{}

// EndUpdateWindowContext completes the update-window context, recording
// metrics and events.
func EndUpdateWindowContext(ctx context.Context, windowID string, err error) {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}

	if span, ok := ctx.Value(updateWindowSpanKey{}).(trace.Span); ok {
		if err != nil {
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}

	tel.Metrics.SetUpdateWindowOpen(false)

	if err != nil {
		_ = tel.Events.PublishUpdateWindowFailed(windowID, err.Error())
	} else {
		_ = tel.Events.PublishUpdateWindowClosed(windowID)
	}
}

// WithPushContext creates a context enriched with telemetry for a single
// push through the tree.
func WithPushContext(ctx context.Context, path, variant, namespace string) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}

	spanCtx, span := tel.Tracer.StartPushSpan(ctx, path, variant)

	logger := tel.Logger.
		WithResourcePath(path).
		WithField("variant", variant).
		WithField("namespace", namespace)
	spanCtx = logger.WithContext(spanCtx)

	spanCtx = context.WithValue(spanCtx, pushSpanKey{}, span)
	spanCtx = context.WithValue(spanCtx, pushTimerKey{}, NewTimer())

	return spanCtx
}

// pushSpanKey is the context key for push spans.
type pushSpanKey struct{}

// pushTimerKey is the context key for push timers.
type pushTimerKey struct{}

// EndPushContext completes the push context, recording metrics and events.
// accepted reports whether the push survived the Observation filter
// pipeline (always true for Input/Output/Placeholder).
func EndPushContext(ctx context.Context, path, variant string, accepted bool, err error) {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}

	if span, ok := ctx.Value(pushSpanKey{}).(trace.Span); ok {
		if err != nil {
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}

	var duration time.Duration
	if timer, ok := ctx.Value(pushTimerKey{}).(*Timer); ok {
		duration = timer.Duration()
	}

	if accepted {
		tel.Metrics.RecordPushAccepted(variant, duration)
	} else {
		tel.Metrics.RecordPushFiltered("filter-pipeline")
	}

	if err != nil {
		_ = tel.Events.PublishPushFailed(path, err.Error())
	} else {
		_ = tel.Events.PublishPushCompleted(path, accepted, duration)
	}
}

// WithBufferBackendContext creates a context enriched with telemetry for a
// buffer-backup backend call.
func WithBufferBackendContext(ctx context.Context, backendName string) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}
	logger := tel.Logger.WithBufferBackend(backendName)
	return logger.WithContext(ctx)
}

// RecordBufferBackendOperation records a BufferBackend.Save/Load call with
// metrics and tracing.
func RecordBufferBackendOperation(ctx context.Context, backendName, path, operation string, fn func() error) error {
	tel := FromTelemetryContext(ctx)

	var span trace.Span
	if tel != nil {
		ctx, span = tel.Tracer.StartBufferBackendSpan(ctx, backendName, operation)
		defer span.End()
	}

	timer := NewTimer()
	err := fn()

	if tel != nil {
		status := "ok"
		if err != nil {
			status = "error"
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		if operation == "save" {
			tel.Metrics.RecordBufferBackup(path, status)
		}
		_ = timer
	}

	return err
}
