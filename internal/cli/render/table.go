package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Color styles shared by the plan and summary renderers
var (
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
	titleStyle         = color.New(color.FgCyan, color.Bold)
	nameStyle          = color.New(color.FgCyan)
	addressStyle       = color.New(color.FgWhite)
	importStyle        = color.New(color.FgMagenta)
	deployStyle        = color.New(color.FgGreen)
	mutedStyle         = color.New(color.Faint)
	failedStyle        = color.New(color.FgRed)
	warnStyle          = color.New(color.FgYellow)
)

type TableData [][]string

// writeSection prints a bold section title followed by an indented table
func writeSection(out io.Writer, title string, rows TableData) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(out, sectionHeaderStyle.Sprint(title))
	fmt.Fprint(out, renderTable(rows))
	fmt.Fprintln(out)
}

// renderTable lays rows out as borderless, left aligned columns
func renderTable(rows TableData) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box = table.BoxStyle{
		PaddingLeft:  "  ",
		PaddingRight: "   ",
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	colConfigs := make([]table.ColumnConfig, width)
	for i := range colConfigs {
		colConfigs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft}
	}
	t.SetColumnConfigs(colConfigs)

	for _, row := range rows {
		tableRow := make(table.Row, len(row))
		for i, cell := range row {
			tableRow[i] = cell
		}
		t.AppendRow(tableRow)
	}
	return t.Render() + "\n"
}
