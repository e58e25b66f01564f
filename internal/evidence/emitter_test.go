package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
)

func TestLog_ShadowWriteFailureFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	emitter := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := emitter.EmitShadowWriteFailure(context.Background(), ShadowWriteFailure{
		EventType:      EventShadowWriteFailure,
		EntityType:     "Listing",
		EntityID:       "l1",
		Operation:      "update",
		ErrorMessage:   "connection refused",
		ErrorKind:      ErrorKindShadowStore,
		RequestID:      "req-9",
		OrganizationID: "org-4",
		OccurredAt:     time.Now().UTC(),
	})
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, EventShadowWriteFailure, rec["event_type"])
	assert.Equal(t, "Listing", rec["entity_type"])
	assert.Equal(t, "l1", rec["entity_id"])
	assert.Equal(t, "update", rec["operation"])
	assert.Equal(t, "connection refused", rec["error_message"])
	assert.Equal(t, ErrorKindShadowStore, rec["error_kind"])
	assert.Equal(t, "req-9", rec["request_id"])
	assert.Equal(t, "org-4", rec["organization_id"])
	assert.Equal(t, "WARN", rec["level"])
}

func TestLog_DiscrepancyBatch(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	emitter := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := emitter.EmitDiscrepancyBatch(context.Background(), DiscrepancyBatch{
		EntityType:        "Listing",
		VerificationRunID: "20260801T103000-abcd1234",
		Discrepancies: []domain.Discrepancy{
			{EntityID: "42", Kind: domain.DataMismatch, MismatchedFields: []string{"status"}},
			{EntityID: "99", Kind: domain.MissingInPrimary},
		},
		EmittedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "20260801T103000-abcd1234", rec["verification_run_id"])
	assert.Equal(t, float64(2), rec["discrepancies"])
}
