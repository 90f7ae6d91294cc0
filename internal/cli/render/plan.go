package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// PlanRenderer prints a resolved deployment plan
type PlanRenderer struct {
	out   io.Writer
	color bool
}

// NewPlanRenderer creates a new plan renderer
func NewPlanRenderer(out io.Writer, color bool) *PlanRenderer {
	return &PlanRenderer{
		out:   out,
		color: color,
	}
}

// Render prints the components in provisioning order followed by the
// links, permission sets, handoffs and actions of the plan.
func (r *PlanRenderer) Render(plan *models.DeploymentPlan) error {
	deploys := lo.CountBy(plan.Components, func(c *models.ComponentSpec) bool { return !c.IsImport() })
	fmt.Fprintf(r.out, "%s %s\n", titleStyle.Sprint("Plan"), nameStyle.Sprint(plan.Name))
	fmt.Fprintf(r.out, "%d component(s): %d to deploy, %d imported\n\n", len(plan.Components), deploys, len(plan.Components)-deploys)

	writeSection(r.out, "Components", r.componentRows(plan))
	writeSection(r.out, "Links", invocationRows(plan.Links))
	writeSection(r.out, "Permissions", r.permissionRows(plan))
	writeSection(r.out, "Handoffs", invocationRows(plan.Handoffs))
	writeSection(r.out, "Actions", actionRows(plan.Actions))
	return nil
}

func (r *PlanRenderer) componentRows(plan *models.DeploymentPlan) TableData {
	rows := make(TableData, 0, len(plan.Components))
	for i, c := range plan.Components {
		mode := deployStyle.Sprint("deploy")
		if c.IsImport() {
			mode = importStyle.Sprint("import ") + addressStyle.Sprint(c.Address.Hex())
		}
		deps := ""
		if d := c.Dependencies(); len(d) > 0 {
			deps = mutedStyle.Sprint("after " + strings.Join(d, ", "))
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d.", i+1),
			nameStyle.Sprint(c.Name),
			c.Kind,
			string(c.Group),
			mode,
			deps,
		})
	}
	return rows
}

func (r *PlanRenderer) permissionRows(plan *models.DeploymentPlan) TableData {
	var rows TableData
	for _, set := range plan.PermissionSets {
		gate := "global"
		switch {
		case set.Always:
			gate = "always"
		case set.Gate != "":
			gate = "if " + set.Gate + " deployed"
		}
		rows = append(rows, []string{nameStyle.Sprint(set.Scope), mutedStyle.Sprint(gate), fmt.Sprintf("%d rule(s)", len(set.Rules))})
		for _, rule := range set.Rules {
			rows = append(rows, []string{"", "", rule.String()})
		}
	}
	return rows
}

func invocationRows(invocations []models.Invocation) TableData {
	rows := make(TableData, 0, len(invocations))
	for _, inv := range invocations {
		args := lo.Map(inv.Args, func(a models.Arg, _ int) string { return a.String() })
		from := ""
		if inv.From != "" {
			from = mutedStyle.Sprint("from " + inv.From)
		}
		rows = append(rows, []string{nameStyle.Sprint(inv.Target), fmt.Sprintf("%s(%s)", inv.Method, strings.Join(args, ", ")), from})
	}
	return rows
}

func actionRows(actions []models.GovernanceAction) TableData {
	rows := make(TableData, 0, len(actions))
	for i, a := range actions {
		extra := ""
		if a.Time > 0 {
			extra = mutedStyle.Sprintf("+%ds", a.Time)
		}
		from := "default sender"
		if a.From != "" {
			from = a.From
		}
		rows = append(rows, []string{fmt.Sprintf("%d.", i), a.String(), mutedStyle.Sprint("from " + from), extra})
	}
	return rows
}
