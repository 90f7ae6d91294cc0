package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

func pipelinePlan(t *testing.T) *models.DeploymentPlan {
	t.Helper()
	plan := mustPlan(t,
		&models.ComponentSpec{Name: "Submission", Kind: "Submission", Group: models.GroupPipeline},
		&models.ComponentSpec{Name: "Review", Kind: "Review", Group: models.GroupPipeline, DependsOn: []string{"Submission"}},
	)
	plan.Links = []models.Invocation{
		{Target: "Submission", Method: "setNextStage", Args: []models.Arg{models.RefArg("Review")}},
		{Target: "Review", Method: "setPrevStage", Args: []models.Arg{models.RefArg("Submission")}},
	}
	return plan
}

func TestLinkPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("mutually dependent stages know each other", func(t *testing.T) {
		h := newHarness()
		state := NewRunState(pipelinePlan(t))
		require.NoError(t, h.provisioner().Run(ctx, state))
		require.NoError(t, h.linker().Run(ctx, state))

		submission, _ := state.Registry.Lookup("Submission")
		review, _ := state.Registry.Lookup("Review")

		next := h.gateway.callsTo("Submission.setNextStage")
		require.Len(t, next, 1)
		assert.Equal(t, submission, next[0].Target)
		assert.Equal(t, []any{review}, next[0].Args)

		prev := h.gateway.callsTo("Review.setPrevStage")
		require.Len(t, prev, 1)
		assert.Equal(t, review, prev[0].Target)
		assert.Equal(t, []any{submission}, prev[0].Args)

		assert.Equal(t, []string{StageComponent, StageComponent, StageLink, StageLink}, h.sink.stages())
	})

	t.Run("link calls target imported stages too", func(t *testing.T) {
		h := newHarness()
		plan := pipelinePlan(t)
		plan.Components[0].Mode = models.ModeImport
		plan.Components[0].Address = aliceAddr
		state := NewRunState(plan)
		require.NoError(t, h.provisioner().Run(ctx, state))
		require.NoError(t, h.linker().Run(ctx, state))

		assert.Len(t, h.gateway.callsTo("Submission.setNextStage"), 1)
		assert.Equal(t, aliceAddr, h.gateway.callsTo("Submission.setNextStage")[0].Target)
	})

	t.Run("a failed link aborts", func(t *testing.T) {
		h := newHarness()
		h.gateway.failWith("Submission.setNextStage")
		state := NewRunState(pipelinePlan(t))
		require.NoError(t, h.provisioner().Run(ctx, state))

		err := h.linker().Run(ctx, state)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrChainCall))
		assert.Empty(t, h.gateway.callsTo("Review.setPrevStage"))
	})

	t.Run("links to unknown components fail to resolve", func(t *testing.T) {
		h := newHarness()
		plan := pipelinePlan(t)
		plan.Links = append(plan.Links, models.Invocation{
			Target: "Review", Method: "setManager", Args: []models.Arg{models.RefArg("Publication")},
		})
		state := NewRunState(plan)
		require.NoError(t, h.provisioner().Run(ctx, state))

		err := h.linker().Run(ctx, state)
		assert.True(t, errors.Is(err, domain.ErrUnresolvedReference))
	})
}
