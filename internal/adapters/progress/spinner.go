package progress

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// phaseOrder lists the run phases in the order they are displayed
var phaseOrder = []string{
	usecase.PhasePreflight,
	usecase.PhaseProvision,
	usecase.PhaseLink,
	usecase.PhasePermissions,
	usecase.PhaseHandoffs,
	usecase.PhaseActions,
}

var phaseTitles = map[string]string{
	usecase.PhasePreflight:   "Preflight checks",
	usecase.PhaseProvision:   "Provisioning components",
	usecase.PhaseLink:        "Linking pipeline",
	usecase.PhasePermissions: "Configuring permissions",
	usecase.PhaseHandoffs:    "Handing off authority",
	usecase.PhaseActions:     "Replaying governance actions",
}

// SpinnerProgressReporter shows a spinner while the run waits on the chain
// and pauses it whenever a line is printed.
type SpinnerProgressReporter struct {
	out     io.Writer
	spinner *spinner.Spinner

	phase      string
	phaseStart time.Time
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
func NewSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		out:     out,
		spinner: s,
	}
}

// ReportPhase closes the current phase and starts the named one
func (r *SpinnerProgressReporter) ReportPhase(name string) {
	r.completePhase()

	r.phase = name
	r.phaseStart = time.Now()

	title, ok := phaseTitles[name]
	if !ok {
		title = name
	}
	r.Println(color.New(color.Bold).Sprintf("\n[%d/%d] %s", phaseNumber(name), len(phaseOrder), title))

	r.spinner.Suffix = " " + title
	r.spinner.Start()
}

// OnProgress updates the spinner suffix for events that ask for it
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Spinner {
		r.spinner.Suffix = " " + event.Message
		r.spinner.Start()
	}
}

// Println prints a line without interleaving it with the spinner
func (r *SpinnerProgressReporter) Println(line string) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}

	fmt.Fprintln(r.out, line)

	if wasActive {
		r.spinner.Start()
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.Println(color.New(color.FgCyan).Sprint(message))
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.Println(color.New(color.FgRed).Sprint(message))
}

// Stop closes the current phase and stops the spinner
func (r *SpinnerProgressReporter) Stop() {
	r.completePhase()
	r.spinner.Stop()
}

func (r *SpinnerProgressReporter) completePhase() {
	if r.phase == "" {
		return
	}
	elapsed := time.Since(r.phaseStart).Round(time.Millisecond)
	r.spinner.Stop()
	fmt.Fprintln(r.out, color.New(color.FgGreen).Sprint("✓ ")+color.New(color.Faint).Sprintf("%s (%s)", r.phase, elapsed))
	r.phase = ""
}

func phaseNumber(name string) int {
	for i, p := range phaseOrder {
		if p == name {
			return i + 1
		}
	}
	return 0
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
