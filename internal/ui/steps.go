package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
	StepSkipped                    // Skipped
)

// Step represents a single step in a multi-step operation
type Step struct {
	Number  int        // Step number (1-based)
	Name    string     // Step description
	Status  StepStatus // Current status
	Message string     // Optional status message (e.g., "42 entities")
}

// StepCallback is the function signature for step progress updates.
// Commands call this to report progress.
type StepCallback func(stepNumber int, status StepStatus, message string)

// RunnerConfig holds configuration for a multi-step command
type RunnerConfig struct {
	Title     string    // Command title (e.g., "Configuration Check")
	Command   string    // Full command (e.g., "vtdash check")
	Params    []Param   // Parameters to display in header
	StepNames []string  // Names for each step
	Output    io.Writer // Output writer (default: os.Stdout)

	// Hints returns troubleshooting tips for a failure
	Hints func(err error) []string
}

// Operation is the work a Runner reports on. It returns the result box
// to print on success.
type Operation func(onStep StepCallback) (*Result, error)

// Runner manages the header → steps → result flow for a CLI command
type Runner struct {
	config RunnerConfig
	steps  []Step
	output io.Writer
	width  int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	steps := make([]Step, len(config.StepNames))
	for i, name := range config.StepNames {
		steps[i] = Step{Number: i + 1, Name: name, Status: StepPending}
	}

	return &Runner{
		config: config,
		steps:  steps,
		output: config.Output,
		width:  GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Runner) SetWidth(width int) *Runner {
	r.width = width
	return r
}

// Steps returns the current step states
func (r *Runner) Steps() []Step {
	return r.steps
}

// Run prints the header, executes the operation, and prints the result.
// The operation's error is returned unchanged.
func (r *Runner) Run(operation Operation) error {
	start := time.Now()

	header := NewHeader(r.config.Title, r.config.Command, r.config.Params...)
	header.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, header.Render())
	_, _ = fmt.Fprintln(r.output)

	result, err := operation(r.onStep)
	duration := time.Since(start).Round(time.Millisecond).String()
	_, _ = fmt.Fprintln(r.output)

	if err != nil {
		failure := NewFailureResult(r.config.Title+" failed", err, r.hints(err))
		failure.AddDetail("Duration", duration)
		failure.SetWidth(r.width)
		_, _ = fmt.Fprintln(r.output, failure.Render())
		return err
	}

	if result == nil {
		result = NewSuccessResult(r.config.Title + " complete")
	}
	result.AddDetail("Duration", duration)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
	return nil
}

func (r *Runner) hints(err error) []string {
	if r.config.Hints == nil {
		return nil
	}
	return r.config.Hints(err)
}

func (r *Runner) onStep(stepNumber int, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > len(r.steps) {
		return
	}
	step := &r.steps[stepNumber-1]
	step.Status = status
	step.Message = message

	line := r.renderStepLine(*step)
	if status == StepRunning {
		// Overwritten when the step finishes
		_, _ = fmt.Fprint(r.output, line+"\r")
		return
	}
	// Clear the running line's tail before the final state
	_, _ = fmt.Fprintln(r.output, line+"\x1b[K")
}

// renderStepLine renders a single step line
func (r *Runner) renderStepLine(step Step) string {
	prefix := fmt.Sprintf("  [%d/%d]", step.Number, len(r.steps))

	var (
		marker    string
		nameStyle lipgloss.Style
	)
	switch step.Status {
	case StepComplete:
		marker, nameStyle = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, nameStyle = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, nameStyle = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, nameStyle = StepMarkerSkipped, StepPendingStyle
	default:
		marker, nameStyle = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(nameStyle.Render(step.Name))

	// Markers line up at a fixed column
	padding := 45 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(nameStyle.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}

	return b.String()
}
