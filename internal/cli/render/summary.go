package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/treb-dao/internal/domain/models"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeployRenderer prints the outcome of a deployment run
type DeployRenderer struct {
	out   io.Writer
	color bool
}

// NewDeployRenderer creates a new deploy renderer
func NewDeployRenderer(out io.Writer, color bool) *DeployRenderer {
	return &DeployRenderer{
		out:   out,
		color: color,
	}
}

// Render prints the provisioned components, the proposals created by the
// action replay and where the network descriptor was written.
func (r *DeployRenderer) Render(result *usecase.DeployDAOResult) error {
	d := result.Descriptor
	if d == nil {
		fmt.Fprintln(r.out, FormatWarning("Dry run: nothing was sent to the network"))
		return nil
	}

	status := cases.Title(language.English).String(string(d.Status))
	statusStyle := deployStyle
	if d.Status == models.RunFailed {
		statusStyle = failedStyle
	}
	fmt.Fprintf(r.out, "%s %s on %s (chain %d)\n", titleStyle.Sprint(d.Plan), statusStyle.Sprint(status), d.Network, d.ChainID)
	fmt.Fprintln(r.out, mutedStyle.Sprintf("run %s from block %d", d.RunID, d.FromBlock))
	fmt.Fprintln(r.out)

	writeSection(r.out, "Components", componentRecordRows(d.Components))

	if len(d.Proposals) > 0 {
		rows := make(TableData, 0, len(d.Proposals))
		failed := make(map[int]bool)
		if result.State != nil {
			for _, idx := range result.State.FailedExecutions {
				failed[int(idx)] = true
			}
		}
		for i, id := range d.Proposals {
			note := ""
			if failed[i] {
				note = warnStyle.Sprint("execution failed")
			}
			rows = append(rows, []string{fmt.Sprintf("#%d", i), addressStyle.Sprint(id), note})
		}
		writeSection(r.out, "Proposals", rows)
	}

	if d.Status == models.RunFailed {
		fmt.Fprintln(r.out, FormatError(d.Error))
	}
	fmt.Fprintf(r.out, "Network descriptor written to %s\n", result.OutPath)
	return nil
}

func componentRecordRows(records []models.ComponentRecord) TableData {
	rows := make(TableData, 0, len(records))
	for _, c := range records {
		mode := importStyle.Sprint("imported")
		if c.Deployed {
			mode = deployStyle.Sprint("deployed")
		}
		tx := ""
		if c.TxHash != "" {
			tx = mutedStyle.Sprint(c.TxHash)
		}
		rows = append(rows, []string{nameStyle.Sprint(c.Name), addressStyle.Sprint(c.Address), mode, tx})
	}
	return rows
}
