// Package dualwrite orchestrates the canonical write followed by the
// mirrored shadow write. The central invariant: the caller's outcome is
// decided by the primary store alone. Shadow failures are absorbed, measured,
// and emitted as evidence, never surfaced.
package dualwrite

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
	"github.com/leaseline-platform/shadowsync-go/internal/evidence"
	"github.com/leaseline-platform/shadowsync-go/internal/faultinject"
	"github.com/leaseline-platform/shadowsync-go/internal/store"
)

// Operation names used in metrics, evidence, and fault keys.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

const evidenceTimeout = 10 * time.Second

// Recorder receives dual-write accounting. Satisfied by observability.Metrics
// and by test spies.
type Recorder interface {
	RecordSuccess(ctx context.Context, entityType, operation string)
	RecordFailure(ctx context.Context, entityType, operation string, injected bool)
	RecordDuration(ctx context.Context, entityType, operation string, d time.Duration, success bool)
}

// WriteContext carries the caller's correlation IDs. Used only for evidence;
// never for control flow.
type WriteContext struct {
	RequestID      string
	UserID         string
	OrganizationID string
}

// Service wraps create/update/delete for one entity type so shadow-store
// failures never affect the caller. Construct one per entity type and share
// it; all state behind it is concurrency-safe.
type Service struct {
	entityType string
	primary    store.Primary
	shadow     store.Shadow
	metrics    Recorder
	evidence   evidence.Emitter
	injector   faultinject.Injector // nil = never injects
	logger     *slog.Logger

	wg sync.WaitGroup // in-flight evidence emissions
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithFaultInjector attaches a fault injector consulted before every shadow
// write. Absence means no faults are ever injected.
func WithFaultInjector(inj faultinject.Injector) Option {
	return func(s *Service) { s.injector = inj }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a dual-write Service. All collaborators are explicit; there is
// no package-level shared instance.
func New(entityType string, primary store.Primary, shadow store.Shadow, metrics Recorder, emitter evidence.Emitter, opts ...Option) *Service {
	s := &Service{
		entityType: entityType,
		primary:    primary,
		shadow:     shadow,
		metrics:    metrics,
		evidence:   emitter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEntity writes the entity canonically, then mirrors it. A primary
// error propagates unmodified and the shadow store is never touched.
func (s *Service) CreateEntity(ctx context.Context, wc WriteContext, e domain.Entity) (domain.ShadowWriteResult, error) {
	canonical, err := s.primary.Create(ctx, e)
	if err != nil {
		return domain.ShadowWriteResult{}, err
	}
	return s.mirror(ctx, wc, OpCreate, canonical, func(ctx context.Context) error {
		_, err := s.shadow.Create(ctx, canonical)
		return err
	}), nil
}

// UpdateEntity applies the partial update canonically, then mirrors it. The
// shadow lacking the ID counts as a shadow failure: the stores stay divergent
// afterwards and the failure must reach metrics and evidence.
func (s *Service) UpdateEntity(ctx context.Context, wc WriteContext, id string, fields map[string]any) (domain.ShadowWriteResult, error) {
	canonical, err := s.primary.Update(ctx, id, fields)
	if err != nil {
		return domain.ShadowWriteResult{}, err
	}
	return s.mirror(ctx, wc, OpUpdate, canonical, func(ctx context.Context) error {
		_, err := s.shadow.Update(ctx, id, fields)
		return err
	}), nil
}

// DeleteEntity deletes canonically, then mirrors the delete. A shadow row
// already absent leaves both stores converged, so it is treated as success.
func (s *Service) DeleteEntity(ctx context.Context, wc WriteContext, id string) (domain.ShadowWriteResult, error) {
	if _, err := s.primary.Delete(ctx, id); err != nil {
		return domain.ShadowWriteResult{}, err
	}
	return s.mirror(ctx, wc, OpDelete, domain.Entity{ID: id}, func(ctx context.Context) error {
		_, err := s.shadow.Delete(ctx, id)
		return err
	}), nil
}

// GetEntity reads from the primary store only. The shadow store is never
// authoritative for business reads.
func (s *Service) GetEntity(ctx context.Context, id string) (*domain.Entity, error) {
	return s.primary.FindByID(ctx, id)
}

// ListEntities pages the primary store only.
func (s *Service) ListEntities(ctx context.Context, limit, offset int) ([]domain.Entity, error) {
	return s.primary.List(ctx, limit, offset)
}

// Flush blocks until in-flight evidence emissions complete. Call on shutdown
// and between tests.
func (s *Service) Flush() {
	s.wg.Wait()
}

// mirror runs the shadow side of one dual-write: fault-injector consult,
// shadow write, accounting, and asynchronous evidence on failure. It never
// returns an error to the caller.
func (s *Service) mirror(ctx context.Context, wc WriteContext, op string, canonical domain.Entity, write func(context.Context) error) domain.ShadowWriteResult {
	opKey := s.entityType + ":" + op

	start := time.Now()
	var shadowErr error
	if s.injector != nil {
		shadowErr = s.injector.MaybeInject(ctx, faultinject.CategoryShadowWrite, opKey)
	}
	if shadowErr == nil {
		shadowErr = write(ctx)
	}
	elapsed := time.Since(start)

	result := domain.ShadowWriteResult{
		Entity:        canonical,
		ShadowSuccess: shadowErr == nil,
		ShadowErr:     shadowErr,
		ShadowElapsed: elapsed,
	}

	s.metrics.RecordDuration(ctx, s.entityType, op, elapsed, shadowErr == nil)
	if shadowErr == nil {
		s.metrics.RecordSuccess(ctx, s.entityType, op)
		return result
	}

	var fe *faultinject.FaultError
	injected := errors.As(shadowErr, &fe)
	if injected {
		result.FaultID = fe.FaultID
	}
	s.metrics.RecordFailure(ctx, s.entityType, op, injected)
	s.logger.Warn("shadow write failed",
		"entity_type", s.entityType,
		"entity_id", canonical.ID,
		"operation", op,
		"injected", injected,
		"error", shadowErr,
	)
	s.emitFailureAsync(wc, op, canonical.ID, shadowErr, result.FaultID)
	return result
}

// emitFailureAsync dispatches the evidence record without blocking the write
// path. The emission uses a detached context so a slow pipeline cannot hold a
// caller's deadline; its errors are logged, never raised.
func (s *Service) emitFailureAsync(wc WriteContext, op, entityID string, shadowErr error, faultID string) {
	kind := evidence.ErrorKindShadowStore
	if faultID != "" {
		kind = evidence.ErrorKindInjectedFault
	}
	rec := evidence.ShadowWriteFailure{
		EventType:      evidence.EventShadowWriteFailure,
		EntityType:     s.entityType,
		EntityID:       entityID,
		Operation:      op,
		ErrorMessage:   shadowErr.Error(),
		ErrorKind:      kind,
		FaultID:        faultID,
		RequestID:      wc.RequestID,
		UserID:         wc.UserID,
		OrganizationID: wc.OrganizationID,
		OccurredAt:     time.Now().UTC(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), evidenceTimeout)
		defer cancel()
		if err := s.evidence.EmitShadowWriteFailure(ctx, rec); err != nil {
			s.logger.Error("evidence emission failed",
				"entity_type", rec.EntityType,
				"entity_id", rec.EntityID,
				"operation", rec.Operation,
				"error", err,
			)
		}
	}()
}
