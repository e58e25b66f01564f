// Package evidence defines the audit-trail records the engine produces and
// the emitter contract the surrounding system implements. Emission is
// fire-and-forget from the engine's perspective: emitter errors are logged by
// the caller and never propagated into write or verification paths.
package evidence

import (
	"context"
	"log/slog"
	"time"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
)

// EventShadowWriteFailure is the event type stamped on every shadow-write
// failure record.
const EventShadowWriteFailure = "SHADOW_WRITE_FAILURE"

// Error kinds distinguishing how a shadow write failed.
const (
	ErrorKindShadowStore   = "shadow_store"
	ErrorKindInjectedFault = "injected_fault"
)

// ShadowWriteFailure describes one failed mirrored write, with the caller's
// correlation IDs carried through for the audit trail.
type ShadowWriteFailure struct {
	EventType      string    `json:"event_type"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	Operation      string    `json:"operation"`
	ErrorMessage   string    `json:"error_message"`
	ErrorKind      string    `json:"error_kind"`
	FaultID        string    `json:"fault_id,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// DiscrepancyBatch carries every discrepancy of one verification run in a
// single record, bounding evidence-pipeline load.
type DiscrepancyBatch struct {
	EntityType        string               `json:"entity_type"`
	VerificationRunID string               `json:"verification_run_id"`
	Discrepancies     []domain.Discrepancy `json:"discrepancies"`
	EmittedAt         time.Time            `json:"emitted_at"`
}

// Emitter receives evidence records. Implementations must be safe for
// concurrent use.
type Emitter interface {
	EmitShadowWriteFailure(ctx context.Context, rec ShadowWriteFailure) error
	EmitDiscrepancyBatch(ctx context.Context, batch DiscrepancyBatch) error
}

// Log emits evidence as structured log records. The default emitter; a
// production deployment swaps in one backed by its audit pipeline.
type Log struct {
	logger *slog.Logger
}

var _ Emitter = (*Log)(nil)

// NewLog creates a slog-backed emitter.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) EmitShadowWriteFailure(ctx context.Context, rec ShadowWriteFailure) error {
	l.logger.LogAttrs(ctx, slog.LevelWarn, "shadow write failure",
		slog.String("event_type", rec.EventType),
		slog.String("entity_type", rec.EntityType),
		slog.String("entity_id", rec.EntityID),
		slog.String("operation", rec.Operation),
		slog.String("error_message", rec.ErrorMessage),
		slog.String("error_kind", rec.ErrorKind),
		slog.String("fault_id", rec.FaultID),
		slog.String("request_id", rec.RequestID),
		slog.String("user_id", rec.UserID),
		slog.String("organization_id", rec.OrganizationID),
	)
	return nil
}

func (l *Log) EmitDiscrepancyBatch(ctx context.Context, batch DiscrepancyBatch) error {
	l.logger.LogAttrs(ctx, slog.LevelWarn, "discrepancy batch",
		slog.String("entity_type", batch.EntityType),
		slog.String("verification_run_id", batch.VerificationRunID),
		slog.Int("discrepancies", len(batch.Discrepancies)),
		slog.Any("details", batch.Discrepancies),
	)
	return nil
}
