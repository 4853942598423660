package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics defines the interface for recording key management metrics.
type BusinessMetrics interface {
	// RecordOperation records a key management operation with its status.
	// Operation examples: "create_key", "rotate_key", "get_key"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, operation, status string)

	// RecordDuration records the duration of an operation with its status.
	// Duration is recorded in seconds as a histogram for percentile calculations.
	RecordDuration(ctx context.Context, operation string, duration time.Duration, status string)

	// RecordCacheAccess records a key cache lookup result ("hit" or "miss").
	RecordCacheAccess(ctx context.Context, result string)

	// RecordSuspiciousInput counts inputs rejected for carrying injection
	// signatures, labeled by the operation that rejected them.
	RecordSuspiciousInput(ctx context.Context, operation string)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry metrics.
type businessMetrics struct {
	operationCounter  metric.Int64Counter
	durationHisto     metric.Float64Histogram
	cacheCounter      metric.Int64Counter
	suspiciousCounter metric.Int64Counter
}

// NewBusinessMetrics creates a new BusinessMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "kms").
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of key management operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of key management operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	cacheCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_key_cache_accesses_total", namespace),
		metric.WithDescription("Total number of key cache lookups by result"),
		metric.WithUnit("{access}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache counter: %w", err)
	}

	suspiciousCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_suspicious_inputs_total", namespace),
		metric.WithDescription("Total number of inputs rejected for injection signatures"),
		metric.WithUnit("{input}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create suspicious input counter: %w", err)
	}

	return &businessMetrics{
		operationCounter:  operationCounter,
		durationHisto:     durationHisto,
		cacheCounter:      cacheCounter,
		suspiciousCounter: suspiciousCounter,
	}, nil
}

// RecordOperation increments the operation counter with operation and status labels.
func (b *businessMetrics) RecordOperation(ctx context.Context, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with operation and status labels.
func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordCacheAccess increments the cache counter with the lookup result label.
func (b *businessMetrics) RecordCacheAccess(ctx context.Context, result string) {
	b.cacheCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordSuspiciousInput increments the suspicious input counter.
func (b *businessMetrics) RecordSuspiciousInput(ctx context.Context, operation string) {
	b.suspiciousCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", operation)),
	)
}

// NoOpBusinessMetrics is a no-op implementation of BusinessMetrics for when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, operation, status string) {
}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	operation string,
	duration time.Duration,
	status string,
) {
}

// RecordCacheAccess does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordCacheAccess(ctx context.Context, result string) {
}

// RecordSuspiciousInput does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordSuspiciousInput(ctx context.Context, operation string) {
}
