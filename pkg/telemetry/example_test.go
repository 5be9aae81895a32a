package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/databeam/databeam/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "databeam"
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	if err := tel.StartMetricsServer(); err != nil {
		panic(err)
	}

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("application started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	logger := tel.Logger.NewComponentLogger("tree")

	logger = logger.WithFields(map[string]interface{}{
		"window_id":     "win-123",
		"resource_path": "/sensors/temp-1",
	})

	logger.Debug("opening update window")
	logger.Info("entry pushed")
	logger.Warn("observation buffer near capacity")

	err := fmt.Errorf("backend unreachable")
	logger.WithError(err).Error("buffer backup failed")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates distributed tracing usage.
func Example_distributedTracing() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Exporter = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx, span := tel.Tracer.Start(ctx, "tree.push")
	defer span.End()

	span.SetAttributes(
		attribute.String("resource.path", "/sensors/temp-1"),
		attribute.String("resource.variant", "observation"),
	)

	span.AddEvent("filter.accepted")

	ctx, childSpan := tel.Tracer.Start(ctx, "observation.transform")
	defer childSpan.End()

	childSpan.SetAttributes(
		attribute.String("resource.path", "/sensors/temp-1/mean"),
		attribute.String("operation", "mean"),
	)

	time.Sleep(10 * time.Millisecond)

	telemetry.RecordSuccess(childSpan)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Metrics.SetUpdateWindowOpen(true)

	start := time.Now()
	time.Sleep(50 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordPushAccepted("observation", duration)
	tel.Metrics.RecordPushFiltered("min-period")

	tel.Metrics.RecordBufferBackup("/sensors/temp-1", "ok")

	tel.Metrics.RecordError("NOT_FOUND")

	tel.Metrics.SetResourceCount("observation", 10)
	tel.Metrics.SetResourceCount("input", 5)

	tel.Metrics.SetUpdateWindowOpen(false)

	fmt.Println("metrics recorded successfully")
	// Output: metrics recorded successfully
}

// Example_eventPublishing demonstrates event publishing and subscription.
func Example_eventPublishing() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false // Synchronous for example

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, nil) // No filter, receive all events

	tel.Events.PublishUpdateWindowOpened("win-123", "admin@example.com")
	tel.Events.PublishPushCompleted("/sensors/temp-1", true, 25*time.Millisecond)
	tel.Events.PublishUpdateWindowClosed("win-123")

	// Output varies due to async nature, no output specified
}

// Example_updateWindowInstrumentation demonstrates instrumenting a complete
// administrative update window.
func Example_updateWindowInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	windowID := "win-123"
	admin := "admin@example.com"
	ctx = telemetry.WithUpdateWindowContext(ctx, windowID, admin)

	applyUpdateWindow(ctx, windowID)

	telemetry.EndUpdateWindowContext(ctx, windowID, nil)

	fmt.Println("update window instrumentation complete")
	// Output: update window instrumentation complete
}

func applyUpdateWindow(ctx context.Context, windowID string) {
	path := "/sensors/temp-1"
	variant := "observation"

	ctx = telemetry.WithPushContext(ctx, path, variant, "client-a")

	logger := telemetry.FromContext(ctx)
	logger.Info("applying queued pushes")

	time.Sleep(10 * time.Millisecond)

	telemetry.EndPushContext(ctx, path, variant, true, nil)
}

// Example_bufferBackendInstrumentation demonstrates instrumenting buffer
// backend calls.
func Example_bufferBackendInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx = telemetry.WithBufferBackendContext(ctx, "sqlite")

	err := telemetry.RecordBufferBackendOperation(ctx, "sqlite", "/sensors/temp-1", "save", func() error {
		time.Sleep(15 * time.Millisecond)
		return nil
	})

	if err == nil {
		fmt.Println("buffer backend operation completed successfully")
	}

	// Output: buffer backend operation completed successfully
}

// Example_instrumentedOperation demonstrates using the InstrumentedContext helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartOperation(ctx, "policy.evaluate",
		attribute.String("resource.path", "/sensors/temp-1"),
	)
	defer ic.End(nil)

	ic.Logger.Info("evaluating admission policy")

	time.Sleep(5 * time.Millisecond)

	ic.Logger.Debug("policy evaluation complete")

	fmt.Println("operation instrumentation complete")
	// Output: operation instrumentation complete
}

// Example_eventFiltering demonstrates event filtering.
func Example_eventFiltering() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Important event: %s\n", event.Type)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Policy event: %s\n", event.Message)
	}, telemetry.FilterByType(telemetry.EventTypePolicyViolation))

	tel.Events.PublishUpdateWindowOpened("win-123", "admin") // Info - filtered by level filter
	tel.Events.PublishPolicyViolation("/system/heartbeat", "system-namespace", "non-system namespace") // Error - passes level filter
	tel.Events.PublishUpdateWindowFailed("win-123", "timeout")                                         // Error - passes level filter

	// Output varies, no output specified
}

// Example_productionConfiguration demonstrates production-ready configuration.
func Example_productionConfiguration() {
	cfg := telemetry.ProductionConfig()

	cfg.ServiceName = "databeam"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "production"

	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "otel-collector.monitoring.svc.cluster.local:4317"
	cfg.Tracing.SamplingRate = 0.1 // 10% sampling
	cfg.Tracing.Insecure = false   // Use TLS in production

	cfg.Metrics.ListenAddress = ":9090"
	cfg.Metrics.Namespace = "databeam"

	cfg.Events.BufferSize = 10000
	cfg.Events.FlushInterval = 5 * time.Second

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("production configuration validated")
	// Output: production configuration validated
}

// Example_errorRecording demonstrates error recording with proper classification.
func Example_errorRecording() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx, span := tel.Tracer.Start(ctx, "risky_operation")
	defer span.End()

	err := fmt.Errorf("connection timeout")

	if err != nil {
		telemetry.RecordError(span, err)

		tel.Metrics.RecordError("UNAVAILABLE")

		logger := telemetry.FromContext(ctx)
		logger.WithError(err).Error("operation failed")
	}

	fmt.Println("error recording complete")
	// Output: error recording complete
}

// Example_multipleComponents demonstrates telemetry in a multi-component system.
func Example_multipleComponents() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	treeLogger := tel.Logger.NewComponentLogger("tree")
	policyLogger := tel.Logger.NewComponentLogger("policy")
	backupLogger := tel.Logger.NewComponentLogger("backupstore")

	treeLogger.Info("tree initialized")
	policyLogger.Info("loading built-in policies")
	backupLogger.Info("opening buffer backend")

	fmt.Println("multi-component logging complete")
	// Output: multi-component logging complete
}
