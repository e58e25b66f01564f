package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OTel instruments for dual-write accounting and
// verification health. It satisfies the recorder interfaces consumed by the
// dualwrite and verify packages. With no meter provider configured the
// instruments are no-ops, which is what one-shot tools rely on.
type Metrics struct {
	writeSuccess  metric.Int64Counter
	writeFailure  metric.Int64Counter
	writeDuration metric.Float64Histogram
	discrepancies metric.Int64Counter
	lastCheck     metric.Int64Gauge
}

// NewMetrics creates the engine's metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("shadowsync")

	writeSuccess, err := meter.Int64Counter("shadowsync.shadow_write.success",
		metric.WithDescription("Shadow writes that succeeded"),
	)
	if err != nil {
		return nil, err
	}

	writeFailure, err := meter.Int64Counter("shadowsync.shadow_write.failure",
		metric.WithDescription("Shadow writes that failed, organic or injected"),
	)
	if err != nil {
		return nil, err
	}

	writeDuration, err := meter.Float64Histogram("shadowsync.shadow_write.duration_seconds",
		metric.WithDescription("Wall-clock duration of the shadow-write attempt"),
	)
	if err != nil {
		return nil, err
	}

	discrepancies, err := meter.Int64Counter("shadowsync.verification.discrepancies",
		metric.WithDescription("Discrepancies found by verification runs"),
	)
	if err != nil {
		return nil, err
	}

	lastCheck, err := meter.Int64Gauge("shadowsync.verification.last_check_unix",
		metric.WithDescription("Unix time of the last discrepancy check per entity type"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		writeSuccess:  writeSuccess,
		writeFailure:  writeFailure,
		writeDuration: writeDuration,
		discrepancies: discrepancies,
		lastCheck:     lastCheck,
	}, nil
}

func opAttrs(entityType, operation string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("entity_type", entityType),
		attribute.String("operation", operation),
	)
}

// RecordSuccess counts one successful shadow write.
func (m *Metrics) RecordSuccess(ctx context.Context, entityType, operation string) {
	m.writeSuccess.Add(ctx, 1, opAttrs(entityType, operation))
}

// RecordFailure counts one failed shadow write, tagged with whether the
// failure was synthetically injected.
func (m *Metrics) RecordFailure(ctx context.Context, entityType, operation string, injected bool) {
	m.writeFailure.Add(ctx, 1,
		opAttrs(entityType, operation),
		metric.WithAttributes(attribute.Bool("injected", injected)),
	)
}

// RecordDuration records the shadow-write attempt duration.
func (m *Metrics) RecordDuration(ctx context.Context, entityType, operation string, d time.Duration, success bool) {
	m.writeDuration.Record(ctx, d.Seconds(),
		opAttrs(entityType, operation),
		metric.WithAttributes(attribute.Bool("success", success)),
	)
}

// RecordDiscrepancies counts discrepancies found in one verification run.
func (m *Metrics) RecordDiscrepancies(ctx context.Context, entityType string, n int) {
	m.discrepancies.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("entity_type", entityType)),
	)
}

// UpdateLastDiscrepancyCheck stamps the health gauge for the entity type.
func (m *Metrics) UpdateLastDiscrepancyCheck(ctx context.Context, entityType string) {
	m.lastCheck.Record(ctx, time.Now().Unix(),
		metric.WithAttributes(attribute.String("entity_type", entityType)),
	)
}
