// Package observability provides logging, metrics, and tracing
// functionality for the relay.
//
// # Logging
//
// The Logger interface provides structured logging over zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request processed",
//	    observability.String("method", "GET"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
// Prometheus metrics for inbound requests, upstream calls and the weather
// circuit breaker live on a private registry:
//
//	metrics := observability.NewMetrics("relay")
//	handler := metrics.Handler()
//
// # Tracing
//
// OpenTelemetry tracing with an optional OTLP gRPC exporter:
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{Enabled: true})
//	defer tracer.Shutdown(ctx)
package observability
