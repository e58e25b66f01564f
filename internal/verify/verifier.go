// Package verify runs bounded, paginated reconciliation passes comparing the
// primary and shadow stores, classifying mismatches, and emitting batched
// discrepancy evidence.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
	"github.com/leaseline-platform/shadowsync-go/internal/evidence"
)

// Defaults applied by New for zero config values.
const (
	DefaultMaxEntities = 1000
	DefaultMaxDuration = 30 * time.Second
	DefaultPageSize    = 100
)

// PrimaryReader is the slice of the primary contract the verifier consumes.
type PrimaryReader interface {
	List(ctx context.Context, limit, offset int) ([]domain.Entity, error)
	FindByID(ctx context.Context, id string) (*domain.Entity, error)
}

// ShadowReader is the slice of the shadow contract the verifier consumes.
type ShadowReader interface {
	FindByID(ctx context.Context, id string) (*domain.Entity, error)
	AllIDs(ctx context.Context) ([]string, error)
}

// HealthRecorder receives the per-entity-type last-checked stamp and the
// discrepancy count. Satisfied by observability.Metrics.
type HealthRecorder interface {
	UpdateLastDiscrepancyCheck(ctx context.Context, entityType string)
	RecordDiscrepancies(ctx context.Context, entityType string, n int)
}

// Config bounds one verification run.
type Config struct {
	EntityType    string
	MaxEntities   int           // entity cap per run
	MaxDuration   time.Duration // soft wall-clock deadline per run
	PageSize      int           // primary-store page size
	CompareFields []string      // fields checked for data_mismatch
	// ReadsPerSecond throttles store traffic during the scan. Zero means
	// unthrottled.
	ReadsPerSecond float64
}

// Verifier compares the primary and shadow stores for one entity type. Each
// Run is a fresh, self-contained pass; the verifier keeps no state between
// runs.
type Verifier struct {
	cfg      Config
	primary  PrimaryReader
	shadow   ShadowReader
	health   HealthRecorder
	evidence evidence.Emitter
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a Verifier, applying defaults for zero config values.
func New(cfg Config, primary PrimaryReader, shadow ShadowReader, health HealthRecorder, emitter evidence.Emitter) *Verifier {
	if cfg.MaxEntities <= 0 {
		cfg.MaxEntities = DefaultMaxEntities
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	v := &Verifier{
		cfg:      cfg,
		primary:  primary,
		shadow:   shadow,
		health:   health,
		evidence: emitter,
		logger:   slog.Default(),
	}
	if cfg.ReadsPerSecond > 0 {
		v.limiter = rate.NewLimiter(rate.Limit(cfg.ReadsPerSecond), 1)
	}
	return v
}

// run holds the mutable state of one pass.
type run struct {
	result    domain.VerificationResult
	deadline  time.Time
	processed map[string]bool
}

// budget reports whether another entity may be examined, stamping TimedOut
// when the clock, not the cap, is what stops the run.
func (v *Verifier) budget(r *run) bool {
	if time.Now().After(r.deadline) {
		r.result.TimedOut = true
		return false
	}
	return r.result.EntitiesChecked < v.cfg.MaxEntities
}

func (v *Verifier) wait(ctx context.Context) error {
	if v.limiter == nil {
		return nil
	}
	return v.limiter.Wait(ctx)
}

// Run executes one bounded reconciliation pass. A mid-run failure is captured
// in the result's Error field; discrepancies already collected are kept and
// still emitted as a batch. The last-checked health stamp is updated
// regardless of outcome.
func (v *Verifier) Run(ctx context.Context) domain.VerificationResult {
	start := time.Now().UTC()
	r := &run{
		result: domain.VerificationResult{
			RunID:      domain.NewRunID(),
			EntityType: v.cfg.EntityType,
			StartedAt:  start,
		},
		deadline:  start.Add(v.cfg.MaxDuration),
		processed: make(map[string]bool),
	}

	if err := v.scan(ctx, r); err != nil {
		r.result.Error = err.Error()
	}

	if len(r.result.Discrepancies) > 0 {
		v.health.RecordDiscrepancies(ctx, v.cfg.EntityType, len(r.result.Discrepancies))
		batch := evidence.DiscrepancyBatch{
			EntityType:        v.cfg.EntityType,
			VerificationRunID: r.result.RunID,
			Discrepancies:     r.result.Discrepancies,
			EmittedAt:         time.Now().UTC(),
		}
		if err := v.evidence.EmitDiscrepancyBatch(ctx, batch); err != nil {
			v.logger.Error("discrepancy batch emission failed",
				"entity_type", v.cfg.EntityType,
				"run_id", r.result.RunID,
				"error", err,
			)
		}
	}

	v.health.UpdateLastDiscrepancyCheck(ctx, v.cfg.EntityType)

	r.result.CompletedAt = time.Now().UTC()
	v.logger.Info("verification run finished",
		"entity_type", v.cfg.EntityType,
		"run_id", r.result.RunID,
		"entities_checked", r.result.EntitiesChecked,
		"discrepancies", len(r.result.Discrepancies),
		"timed_out", r.result.TimedOut,
		"error", r.result.Error,
	)
	return r.result
}

// scan performs the forward primary pass, then the shadow-orphan pass.
func (v *Verifier) scan(ctx context.Context, r *run) error {
	shadowIDs, err := v.shadow.AllIDs(ctx)
	if err != nil {
		return fmt.Errorf("verify: snapshot shadow ids: %w", err)
	}

	offset := 0
	for {
		if !v.budget(r) {
			return nil
		}
		if err := v.wait(ctx); err != nil {
			return fmt.Errorf("verify: rate limit: %w", err)
		}
		page, err := v.primary.List(ctx, v.cfg.PageSize, offset)
		if err != nil {
			return fmt.Errorf("verify: list primary at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break // primary exhausted
		}
		for _, e := range page {
			if !v.budget(r) {
				return nil
			}
			if err := v.checkEntity(ctx, r, e); err != nil {
				return err
			}
		}
		offset += len(page)
	}

	// Shadow-only orphans: IDs the forward scan never visited.
	for _, id := range shadowIDs {
		if r.processed[id] {
			continue
		}
		if !v.budget(r) {
			return nil
		}
		if err := v.wait(ctx); err != nil {
			return fmt.Errorf("verify: rate limit: %w", err)
		}
		r.result.EntitiesChecked++
		inPrimary, err := v.primary.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("verify: probe primary for %s: %w", id, err)
		}
		if inPrimary == nil {
			r.result.Discrepancies = append(r.result.Discrepancies, domain.Discrepancy{
				EntityID: id,
				Kind:     domain.MissingInPrimary,
			})
		}
	}
	return nil
}

// checkEntity compares one primary entity against its shadow counterpart.
func (v *Verifier) checkEntity(ctx context.Context, r *run, e domain.Entity) error {
	r.processed[e.ID] = true
	r.result.EntitiesChecked++

	if err := v.wait(ctx); err != nil {
		return fmt.Errorf("verify: rate limit: %w", err)
	}
	mirrored, err := v.shadow.FindByID(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("verify: find shadow %s: %w", e.ID, err)
	}
	if mirrored == nil {
		r.result.Discrepancies = append(r.result.Discrepancies, domain.Discrepancy{
			EntityID: e.ID,
			Kind:     domain.MissingInShadow,
		})
		return nil
	}

	var mismatched []string
	for _, field := range v.cfg.CompareFields {
		pv, pok := e.Fields[field]
		sv, sok := mirrored.Fields[field]
		if pok != sok || (pok && !fieldsEqual(pv, sv)) {
			mismatched = append(mismatched, field)
		}
	}
	if len(mismatched) > 0 {
		r.result.Discrepancies = append(r.result.Discrepancies, domain.Discrepancy{
			EntityID:         e.ID,
			Kind:             domain.DataMismatch,
			CheckedFields:    v.cfg.CompareFields,
			MismatchedFields: mismatched,
		})
	}
	return nil
}
