package ui

import (
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrInterrupted is returned when the user presses Ctrl-C during a spinner
var ErrInterrupted = errors.New("interrupted")

type workDoneMsg struct {
	err error
}

// spinnerModel shows a spinner until the background work finishes
type spinnerModel struct {
	spinner spinner.Model
	label   string
	work    func() error
	err     error
	done    bool
}

func newSpinnerModel(label string, work func() error) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)
	return spinnerModel{spinner: s, label: label, work: work}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	work := m.work
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return workDoneMsg{err: work()}
	})
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.err = ErrInterrupted
			m.done = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return ProgressLabelStyle.Render(m.spinner.View()+" "+m.label) + "\n"
}

// RunWithSpinner runs work while a spinner is shown on out. When out is not
// a terminal the work runs without one.
func RunWithSpinner(out io.Writer, label string, work func() error) error {
	if out == nil {
		out = os.Stdout
	}
	if !IsTerminal(out) {
		return work()
	}

	final, err := tea.NewProgram(newSpinnerModel(label, work), tea.WithOutput(out)).Run()
	if err != nil {
		return err
	}
	return final.(spinnerModel).err
}
