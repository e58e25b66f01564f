package dualwrite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
	"github.com/leaseline-platform/shadowsync-go/internal/evidence"
	"github.com/leaseline-platform/shadowsync-go/internal/faultinject"
	"github.com/leaseline-platform/shadowsync-go/internal/store"
	"github.com/leaseline-platform/shadowsync-go/internal/testutil"
)

type fixture struct {
	primary  *store.Memory
	shadow   *testutil.SpyShadow
	recorder *testutil.SpyRecorder
	emitter  *testutil.SpyEmitter
	injector *faultinject.Static
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		primary:  store.NewMemory(),
		shadow:   &testutil.SpyShadow{Inner: store.NewMemory()},
		recorder: &testutil.SpyRecorder{},
		emitter:  &testutil.SpyEmitter{},
		injector: faultinject.NewStatic(),
	}
	f.svc = New("Listing", f.primary, f.shadow, f.recorder, f.emitter,
		WithFaultInjector(f.injector),
	)
	t.Cleanup(f.svc.Flush)
	return f
}

func listing(id string) domain.Entity {
	return domain.NewEntity(id, map[string]any{"title": "loft", "status": "ACTIVE", "price": 1200.0})
}

func TestCreateEntity_BothSucceed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.CreateEntity(ctx, WriteContext{}, listing("l1"))
	require.NoError(t, err)
	assert.True(t, res.ShadowSuccess)
	assert.Empty(t, res.FaultID)
	assert.NoError(t, res.ShadowErr)

	successes, failures, _ := f.recorder.Snapshot()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, failures)

	// Round trip: the shadow copy matches on the comparison fields.
	mirrored, err := f.shadow.FindByID(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, mirrored)
	assert.Equal(t, "loft", mirrored.Fields["title"])
	assert.Equal(t, "ACTIVE", mirrored.Fields["status"])
	assert.Equal(t, 1200.0, mirrored.Fields["price"])
}

func TestCreateEntity_ShadowFailureAbsorbed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.shadow.Err = errors.New("shadow store unavailable")

	res, err := f.svc.CreateEntity(ctx, WriteContext{RequestID: "req-1"}, listing("l1"))
	require.NoError(t, err, "shadow failure must never surface")
	assert.False(t, res.ShadowSuccess)
	assert.Error(t, res.ShadowErr)
	assert.Empty(t, res.FaultID)

	// Primary holds the entity regardless.
	got, err := f.primary.FindByID(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, got)

	successes, failures, injected := f.recorder.Snapshot()
	assert.Equal(t, 0, successes)
	assert.Equal(t, 1, failures)
	assert.Equal(t, 0, injected)

	f.svc.Flush()
	recs := f.emitter.FailureRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, evidence.EventShadowWriteFailure, recs[0].EventType)
	assert.Equal(t, "Listing", recs[0].EntityType)
	assert.Equal(t, "l1", recs[0].EntityID)
	assert.Equal(t, OpCreate, recs[0].Operation)
	assert.Equal(t, evidence.ErrorKindShadowStore, recs[0].ErrorKind)
	assert.Equal(t, "req-1", recs[0].RequestID)
}

func TestCreateEntity_PrimaryFailurePropagates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	primaryErr := errors.New("unique constraint violation")
	scripted := &testutil.ScriptedPrimary{Inner: store.NewMemory(), Err: primaryErr}
	svc := New("Listing", scripted, f.shadow, f.recorder, f.emitter)

	_, err := svc.CreateEntity(ctx, WriteContext{}, listing("l1"))
	assert.ErrorIs(t, err, primaryErr, "canonical error must propagate unmodified")
	assert.Equal(t, 0, f.shadow.WriteCalls(), "shadow store must never be touched")

	successes, failures, _ := f.recorder.Snapshot()
	assert.Equal(t, 0, successes+failures, "no shadow accounting on canonical failure")
	svc.Flush()
	assert.Empty(t, f.emitter.FailureRecords())
}

func TestUpdateEntity_InjectedFault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateEntity(ctx, WriteContext{}, listing("l1"))
	require.NoError(t, err)

	f.injector.Arm("Listing:update", "ft_123", 1)

	res, err := f.svc.UpdateEntity(ctx, WriteContext{OrganizationID: "org-7"}, "l1", map[string]any{"status": "RENTED"})
	require.NoError(t, err)
	assert.False(t, res.ShadowSuccess)
	assert.Equal(t, "ft_123", res.FaultID)

	// Primary applied the update; shadow kept the stale value.
	got, err := f.primary.FindByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "RENTED", got.Fields["status"])
	mirrored, err := f.shadow.FindByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", mirrored.Fields["status"])

	_, failures, injected := f.recorder.Snapshot()
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, injected)

	f.svc.Flush()
	recs := f.emitter.FailureRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, "ft_123", recs[0].FaultID)
	assert.Equal(t, evidence.ErrorKindInjectedFault, recs[0].ErrorKind)
	assert.Equal(t, "org-7", recs[0].OrganizationID)
}

func TestUpdateEntity_ShadowMissingIsFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	// Seed primary only; the shadow never saw l1.
	_, err := f.primary.Create(ctx, listing("l1"))
	require.NoError(t, err)

	res, err := f.svc.UpdateEntity(ctx, WriteContext{}, "l1", map[string]any{"status": "RENTED"})
	require.NoError(t, err)
	assert.False(t, res.ShadowSuccess)
	assert.ErrorIs(t, res.ShadowErr, store.ErrNotFound)
}

func TestDeleteEntity_ShadowMissingIsSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.primary.Create(ctx, listing("l1"))
	require.NoError(t, err)

	// Shadow never held l1; after the delete both stores agree, so the
	// mirrored delete counts as success.
	res, err := f.svc.DeleteEntity(ctx, WriteContext{}, "l1")
	require.NoError(t, err)
	assert.True(t, res.ShadowSuccess)

	successes, failures, _ := f.recorder.Snapshot()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, failures)
}

func TestEvidencePipelineFailure_NeverSurfaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.shadow.Err = errors.New("shadow down")
	f.emitter.Err = errors.New("evidence pipeline down")

	res, err := f.svc.CreateEntity(ctx, WriteContext{}, listing("l1"))
	require.NoError(t, err)
	assert.False(t, res.ShadowSuccess)
	f.svc.Flush()
}

func TestGetEntity_ReadsPrimaryOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.primary.Create(ctx, listing("l1"))
	require.NoError(t, err)

	got, err := f.svc.GetEntity(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, f.shadow.Calls("FindByID"), "reads must bypass the shadow store")
}

func TestDurationRecordedOnBothOutcomes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateEntity(ctx, WriteContext{}, listing("l1"))
	require.NoError(t, err)

	f.shadow.Err = errors.New("boom")
	_, err = f.svc.CreateEntity(ctx, WriteContext{}, listing("l2"))
	require.NoError(t, err)

	assert.Equal(t, 2, f.recorder.DurationCount())
}
