// Package activities exposes verification runs as Temporal activities.
package activities

import (
	"context"
	"fmt"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
	"github.com/leaseline-platform/shadowsync-go/internal/verify"
)

// Activities holds the per-entity-type verifiers the worker serves. Each
// method is registered as a Temporal activity.
type Activities struct {
	Verifiers map[string]*verify.Verifier
}

// VerificationInput names the entity type to reconcile.
type VerificationInput struct {
	EntityType string `json:"entity_type"`
}

// VerificationOutput carries the run summary back to the workflow.
type VerificationOutput struct {
	Result domain.VerificationResult `json:"result"`
}

// RunVerification executes one bounded reconciliation pass for the named
// entity type. Discrepancies and per-run errors live inside the result; the
// activity itself fails only when no verifier is configured.
func (a *Activities) RunVerification(ctx context.Context, input VerificationInput) (VerificationOutput, error) {
	v, ok := a.Verifiers[input.EntityType]
	if !ok {
		return VerificationOutput{}, fmt.Errorf("activities: no verifier configured for entity type %q", input.EntityType)
	}
	return VerificationOutput{Result: v.Run(ctx)}, nil
}
