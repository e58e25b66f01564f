package workflows_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
	"github.com/leaseline-platform/shadowsync-go/internal/temporal/activities"
	"github.com/leaseline-platform/shadowsync-go/internal/temporal/workflows"
)

type SweepSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *SweepSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterActivity(&activities.Activities{})
}

func (s *SweepSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func (s *SweepSuite) TestNoEntityTypes() {
	input := workflows.SweepInput{EntityTypes: []string{}}

	s.env.ExecuteWorkflow(workflows.VerificationSweepWorkflow, input)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result workflows.SweepResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(0, result.RunsCompleted)
	s.Equal(0, result.RunsFailed)
	s.Equal(0, result.TotalDiscrepancies)
}

func (s *SweepSuite) TestCleanRun() {
	s.env.OnActivity("RunVerification", testAnyCtx, testAnyInput).Return(activities.VerificationOutput{
		Result: domain.VerificationResult{
			RunID:           "20260801T103000-abcd1234",
			EntityType:      "Listing",
			StartedAt:       time.Now().UTC(),
			CompletedAt:     time.Now().UTC(),
			EntitiesChecked: 12,
		},
	}, nil).Once()

	s.env.ExecuteWorkflow(workflows.VerificationSweepWorkflow, workflows.SweepInput{
		EntityTypes: []string{"Listing"},
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result workflows.SweepResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(1, result.RunsCompleted)
	s.Equal(0, result.RunsFailed)
	s.Equal(0, result.TotalDiscrepancies)
	s.Equal(0, result.RunsTimedOut)
}

func (s *SweepSuite) TestDiscrepanciesAndTimeoutCounted() {
	s.env.OnActivity("RunVerification", testAnyCtx, testAnyInput).Return(activities.VerificationOutput{
		Result: domain.VerificationResult{
			RunID:      "20260801T103000-cafe0001",
			EntityType: "Listing",
			TimedOut:   true,
			Discrepancies: []domain.Discrepancy{
				{EntityID: "42", Kind: domain.DataMismatch, MismatchedFields: []string{"status"}},
				{EntityID: "99", Kind: domain.MissingInPrimary},
			},
		},
	}, nil).Once()

	s.env.ExecuteWorkflow(workflows.VerificationSweepWorkflow, workflows.SweepInput{
		EntityTypes: []string{"Listing"},
	})
	s.True(s.env.IsWorkflowCompleted())

	var result workflows.SweepResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(1, result.RunsCompleted)
	s.Equal(2, result.TotalDiscrepancies)
	s.Equal(1, result.RunsTimedOut)
}

func (s *SweepSuite) TestOneFailureDoesNotStarveOthers() {
	s.env.OnActivity("RunVerification", testAnyCtx, activities.VerificationInput{EntityType: "Listing"}).
		Return(activities.VerificationOutput{}, errors.New("no verifier configured")).Once()
	s.env.OnActivity("RunVerification", testAnyCtx, activities.VerificationInput{EntityType: "Lease"}).
		Return(activities.VerificationOutput{
			Result: domain.VerificationResult{RunID: "20260801T103000-beef0002", EntityType: "Lease"},
		}, nil).Once()

	s.env.ExecuteWorkflow(workflows.VerificationSweepWorkflow, workflows.SweepInput{
		EntityTypes: []string{"Listing", "Lease"},
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result workflows.SweepResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(1, result.RunsCompleted)
	s.Equal(1, result.RunsFailed)
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}
