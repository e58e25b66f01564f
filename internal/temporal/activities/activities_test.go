package activities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
	"github.com/leaseline-platform/shadowsync-go/internal/store"
	"github.com/leaseline-platform/shadowsync-go/internal/testutil"
	"github.com/leaseline-platform/shadowsync-go/internal/verify"
)

func TestRunVerification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	primary := store.NewMemory()
	shadow := store.NewMemory()
	_, err := primary.Create(ctx, domain.NewEntity("l1", map[string]any{"status": "ACTIVE"}))
	require.NoError(t, err)

	acts := &Activities{
		Verifiers: map[string]*verify.Verifier{
			"Listing": verify.New(verify.Config{
				EntityType:    "Listing",
				CompareFields: []string{"status"},
			}, primary, shadow, &testutil.SpyRecorder{}, &testutil.SpyEmitter{}),
		},
	}

	out, err := acts.RunVerification(ctx, VerificationInput{EntityType: "Listing"})
	require.NoError(t, err)
	assert.Equal(t, "Listing", out.Result.EntityType)
	assert.Equal(t, 1, out.Result.EntitiesChecked)
	require.Len(t, out.Result.Discrepancies, 1)
	assert.Equal(t, domain.MissingInShadow, out.Result.Discrepancies[0].Kind)
}

func TestRunVerification_UnknownEntityType(t *testing.T) {
	t.Parallel()
	acts := &Activities{Verifiers: map[string]*verify.Verifier{}}

	_, err := acts.RunVerification(context.Background(), VerificationInput{EntityType: "Payment"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Payment")
}
