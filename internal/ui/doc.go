// Package ui renders the output of the non-interactive vtdash commands.
//
// Components are built with Lipgloss and follow a "run once and exit"
// pattern: they print polished output but never take over the screen the
// way the dashboard does.
//
//   - Header: command banner showing the operation and its parameters
//   - Runner: numbered step list with a live status marker per step
//   - Result: success, warning and failure boxes with details, notes and
//     troubleshooting tips
//   - RunWithSpinner: a Bubble Tea spinner shown while background work runs
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Configuration Check",
//	    Command:   "vtdash check",
//	    Params:    []ui.Param{{Key: "Server", Value: cfg.HomeAssistant.URL}},
//	    StepNames: []string{"Load configuration", "Fetch entities"},
//	})
//
//	err := runner.Run(func(onStep ui.StepCallback) (*ui.Result, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, ui.StepComplete, "")
//	    return ui.NewSuccessResult("Configuration looks good"), nil
//	})
//
// Logging is controlled separately through VTDASH_LOG_LEVEL. When it is
// unset zap stays silent so only the curated output is shown.
package ui
