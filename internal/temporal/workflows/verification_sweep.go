// Package workflows contains the Temporal workflows scheduling verification.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/leaseline-platform/shadowsync-go/internal/temporal/activities"
)

// SweepInput configures which entity types to reconcile.
type SweepInput struct {
	EntityTypes []string `json:"entity_types"`
}

// SweepResult summarizes the sweep outcome across entity types.
type SweepResult struct {
	RunsCompleted      int `json:"runs_completed"`
	RunsFailed         int `json:"runs_failed"`
	RunsTimedOut       int `json:"runs_timed_out"`
	TotalDiscrepancies int `json:"total_discrepancies"`
}

// VerificationSweepWorkflow runs one verification pass per configured entity
// type. An activity failure for one entity type is recorded and the sweep
// moves on; one broken store must not starve the others of audits.
func VerificationSweepWorkflow(ctx workflow.Context, input SweepInput) (SweepResult, error) {
	logger := workflow.GetLogger(ctx)
	result := SweepResult{}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	actCtx := workflow.WithActivityOptions(ctx, actOpts)

	for _, entityType := range input.EntityTypes {
		var out activities.VerificationOutput
		err := workflow.ExecuteActivity(actCtx, "RunVerification", activities.VerificationInput{
			EntityType: entityType,
		}).Get(ctx, &out)
		if err != nil {
			logger.Warn("verification activity failed", "entity_type", entityType, "error", err)
			result.RunsFailed++
			continue
		}

		result.RunsCompleted++
		result.TotalDiscrepancies += out.Result.DiscrepanciesFound()
		if out.Result.TimedOut {
			result.RunsTimedOut++
		}
		if out.Result.Error != "" {
			result.RunsFailed++
		}

		logger.Info("verification run complete",
			"entity_type", entityType,
			"run_id", out.Result.RunID,
			"entities_checked", out.Result.EntitiesChecked,
			"discrepancies", out.Result.DiscrepanciesFound(),
			"timed_out", out.Result.TimedOut,
		)
	}

	return result, nil
}
