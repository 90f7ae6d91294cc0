package progress

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/trebuchet-org/treb-dao/internal/cli/render"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

var (
	okMark     = color.New(color.FgGreen).Sprint("✓")
	skipMark   = color.New(color.FgMagenta).Sprint("↳")
	failMark   = color.New(color.FgRed).Sprint("✗")
	faintStyle = color.New(color.Faint)
)

// DeployProgress renders the progress trace of a deployment run
type DeployProgress struct {
	planRenderer *render.PlanRenderer
	spinner      *SpinnerProgressReporter

	planRendered bool
}

// NewDeployProgress creates a new deploy progress reporter
func NewDeployProgress(out io.Writer) *DeployProgress {
	return &DeployProgress{
		planRenderer: render.NewPlanRenderer(out, !color.NoColor),
		spinner:      NewSpinnerProgressReporter(out),
	}
}

// OnProgress handles progress events for deploy operations
func (p *DeployProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	switch event.Stage {
	case usecase.StagePlanCreated:
		if plan, ok := event.Metadata.(*models.DeploymentPlan); ok && !p.planRendered {
			_ = p.planRenderer.Render(plan)
			p.planRendered = true
		}

	case usecase.StagePhaseStarting:
		p.spinner.ReportPhase(event.Message)

	case usecase.StageComponent:
		c, ok := event.Metadata.(*usecase.ProvisionedComponent)
		if !ok {
			p.line(okMark, event, event.Message)
			return
		}
		if c.Deployed {
			p.line(okMark, event, fmt.Sprintf("%s deployed at %s %s", c.Spec.Name, c.Address.Hex(), faintStyle.Sprintf("(block %d)", c.Block)))
		} else {
			p.line(skipMark, event, fmt.Sprintf("%s imported at %s", c.Spec.Name, c.Address.Hex()))
		}

	case usecase.StageLink, usecase.StagePermission, usecase.StageHandoff:
		p.line(okMark, event, event.Message)

	case usecase.StageAction:
		if outcome, ok := event.Metadata.(usecase.ActionOutcome); ok && outcome.ProposalID != (common.Hash{}) {
			p.line(okMark, event, fmt.Sprintf("%s %s", event.Message, faintStyle.Sprintf("-> %s", outcome.ProposalID.Hex())))
			return
		}
		p.line(okMark, event, event.Message)

	case usecase.StageActionFailed:
		p.line(failMark, event, color.New(color.FgYellow).Sprint(event.Message))

	case usecase.StageRunCompleted:
		p.spinner.Stop()

	default:
		p.spinner.OnProgress(ctx, event)
	}
}

func (p *DeployProgress) line(mark string, event usecase.ProgressEvent, message string) {
	counter := ""
	if event.Total > 0 {
		counter = faintStyle.Sprintf("[%d/%d] ", event.Current, event.Total)
	}
	p.spinner.Println(fmt.Sprintf("  %s %s%s", mark, counter, message))
}

// Info forwards info messages to the spinner
func (p *DeployProgress) Info(message string) {
	p.spinner.Info(message)
}

// Error forwards error messages to the spinner
func (p *DeployProgress) Error(message string) {
	p.spinner.Stop()
	p.spinner.Error(message)
}

// Ensure DeployProgress implements ProgressSink
var _ usecase.ProgressSink = (*DeployProgress)(nil)
