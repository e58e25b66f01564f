// Package testutil provides scripted stores and spy collaborators shared by
// the engine's tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
	"github.com/leaseline-platform/shadowsync-go/internal/evidence"
	"github.com/leaseline-platform/shadowsync-go/internal/store"
)

// ScriptedPrimary wraps a store.Primary, optionally failing every call with
// Err and sleeping Delay before each read. Calls are counted per method name.
type ScriptedPrimary struct {
	Inner store.Primary
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls map[string]int
}

var _ store.Primary = (*ScriptedPrimary)(nil)

func (p *ScriptedPrimary) record(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[method]++
}

// Calls returns how many times the named method ran.
func (p *ScriptedPrimary) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

func (p *ScriptedPrimary) Create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	p.record("Create")
	if p.Err != nil {
		return domain.Entity{}, p.Err
	}
	return p.Inner.Create(ctx, e)
}

func (p *ScriptedPrimary) Update(ctx context.Context, id string, fields map[string]any) (domain.Entity, error) {
	p.record("Update")
	if p.Err != nil {
		return domain.Entity{}, p.Err
	}
	return p.Inner.Update(ctx, id, fields)
}

func (p *ScriptedPrimary) Delete(ctx context.Context, id string) (bool, error) {
	p.record("Delete")
	if p.Err != nil {
		return false, p.Err
	}
	return p.Inner.Delete(ctx, id)
}

func (p *ScriptedPrimary) FindByID(ctx context.Context, id string) (*domain.Entity, error) {
	p.record("FindByID")
	time.Sleep(p.Delay)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Inner.FindByID(ctx, id)
}

func (p *ScriptedPrimary) List(ctx context.Context, limit, offset int) ([]domain.Entity, error) {
	p.record("List")
	time.Sleep(p.Delay)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Inner.List(ctx, limit, offset)
}

// SpyShadow wraps a store.Shadow, counting write calls and optionally failing
// them with Err.
type SpyShadow struct {
	Inner store.Shadow
	Err   error

	mu    sync.Mutex
	calls map[string]int
}

var _ store.Shadow = (*SpyShadow)(nil)

func (s *SpyShadow) record(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[method]++
}

// Calls returns how many times the named method ran.
func (s *SpyShadow) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// WriteCalls sums the create/update/delete call counts.
func (s *SpyShadow) WriteCalls() int {
	return s.Calls("Create") + s.Calls("Update") + s.Calls("Delete")
}

func (s *SpyShadow) Create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	s.record("Create")
	if s.Err != nil {
		return domain.Entity{}, s.Err
	}
	return s.Inner.Create(ctx, e)
}

func (s *SpyShadow) Update(ctx context.Context, id string, fields map[string]any) (domain.Entity, error) {
	s.record("Update")
	if s.Err != nil {
		return domain.Entity{}, s.Err
	}
	return s.Inner.Update(ctx, id, fields)
}

func (s *SpyShadow) Delete(ctx context.Context, id string) (bool, error) {
	s.record("Delete")
	if s.Err != nil {
		return false, s.Err
	}
	return s.Inner.Delete(ctx, id)
}

func (s *SpyShadow) FindByID(ctx context.Context, id string) (*domain.Entity, error) {
	s.record("FindByID")
	return s.Inner.FindByID(ctx, id)
}

func (s *SpyShadow) FindAll(ctx context.Context, limit, offset int) ([]domain.Entity, error) {
	s.record("FindAll")
	return s.Inner.FindAll(ctx, limit, offset)
}

func (s *SpyShadow) Count(ctx context.Context) (int, error) {
	s.record("Count")
	return s.Inner.Count(ctx)
}

func (s *SpyShadow) AllIDs(ctx context.Context) ([]string, error) {
	s.record("AllIDs")
	return s.Inner.AllIDs(ctx)
}

// SpyRecorder satisfies the dualwrite and verify recorder interfaces,
// capturing counts for assertions.
type SpyRecorder struct {
	mu               sync.Mutex
	Successes        int
	Failures         int
	InjectedFailures int
	Durations        int
	LastChecks       map[string]int
	Discrepancies    map[string]int
}

func (r *SpyRecorder) RecordSuccess(_ context.Context, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Successes++
}

func (r *SpyRecorder) RecordFailure(_ context.Context, _, _ string, injected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures++
	if injected {
		r.InjectedFailures++
	}
}

func (r *SpyRecorder) RecordDuration(_ context.Context, _, _ string, _ time.Duration, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Durations++
}

func (r *SpyRecorder) UpdateLastDiscrepancyCheck(_ context.Context, entityType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LastChecks == nil {
		r.LastChecks = make(map[string]int)
	}
	r.LastChecks[entityType]++
}

func (r *SpyRecorder) RecordDiscrepancies(_ context.Context, entityType string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Discrepancies == nil {
		r.Discrepancies = make(map[string]int)
	}
	r.Discrepancies[entityType] += n
}

// DurationCount returns how many durations were recorded.
func (r *SpyRecorder) DurationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Durations
}

// Snapshot returns the current counters under the lock.
func (r *SpyRecorder) Snapshot() (successes, failures, injected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Successes, r.Failures, r.InjectedFailures
}

// SpyEmitter captures emitted evidence; set Err to simulate a broken
// evidence pipeline.
type SpyEmitter struct {
	Err error

	mu       sync.Mutex
	Failures []evidence.ShadowWriteFailure
	Batches  []evidence.DiscrepancyBatch
}

var _ evidence.Emitter = (*SpyEmitter)(nil)

func (e *SpyEmitter) EmitShadowWriteFailure(_ context.Context, rec evidence.ShadowWriteFailure) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	e.Failures = append(e.Failures, rec)
	return nil
}

func (e *SpyEmitter) EmitDiscrepancyBatch(_ context.Context, batch evidence.DiscrepancyBatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	e.Batches = append(e.Batches, batch)
	return nil
}

// FailureRecords returns a copy of the captured shadow-write failures.
func (e *SpyEmitter) FailureRecords() []evidence.ShadowWriteFailure {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]evidence.ShadowWriteFailure, len(e.Failures))
	copy(out, e.Failures)
	return out
}

// BatchRecords returns a copy of the captured discrepancy batches.
func (e *SpyEmitter) BatchRecords() []evidence.DiscrepancyBatch {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]evidence.DiscrepancyBatch, len(e.Batches))
	copy(out, e.Batches)
	return out
}
