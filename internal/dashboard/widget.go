package dashboard

import (
	"context"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/vt100"
)

// Widget is one render unit placed in the page grid
type Widget interface {
	// Name is the display name, used by the toggle command
	Name() string

	// Full widgets always occupy a whole row
	Full() bool

	Selectable() bool
	Selected() bool
	SetSelected(selected bool)

	// Dirty reports whether the on-screen representation is stale
	Dirty() bool

	// MarkClean records the current state as rendered
	MarkClean()

	// Height is the number of rows the widget needs at width
	Height(width int) int

	// Render draws the widget starting at the current cursor position
	Render(term Terminal, width int)

	// Toggle activates the widget. A no-op for anything but switches.
	Toggle(ctx context.Context) error
}

// truncate cuts s to at most width display cells
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "")
}

// fill blanks the rest of a cell so a shorter value covers a longer one
func fill(term Terminal, used, width int) {
	if gap := width - used; gap > 0 {
		term.SendText(strings.Repeat(" ", gap))
	}
}

// static holds the behaviour shared by widgets that never change after
// their first render
type static struct {
	rendered bool
}

func (s *static) Selectable() bool                 { return false }
func (s *static) Selected() bool                   { return false }
func (s *static) SetSelected(bool)                 {}
func (s *static) Dirty() bool                      { return !s.rendered }
func (s *static) MarkClean()                       { s.rendered = true }
func (s *static) Toggle(ctx context.Context) error { return nil }

// genericWidget is the fallback for entities with no typed rendering
type genericWidget struct {
	static
	id       string
	override string
}

func newGenericWidget(id, nameOverride string) *genericWidget {
	return &genericWidget{id: id, override: nameOverride}
}

func (w *genericWidget) Name() string {
	if w.override != "" {
		return w.override
	}
	return w.id
}

func (w *genericWidget) Full() bool     { return false }
func (w *genericWidget) Height(int) int { return 1 }

func (w *genericWidget) Render(term Terminal, width int) {
	term.SendText(truncate("UNSUPPORTED ENTITY "+w.id, width))
}

// switchWidget shows and toggles a switch entity
type switchWidget struct {
	entities EntitySource
	id       string
	override string

	selected bool
	dirty    bool

	// Snapshot of what was last rendered
	lastName  string
	lastState entity.SwitchState
}

func newSwitchWidget(entities EntitySource, id, nameOverride string) *switchWidget {
	w := &switchWidget{entities: entities, id: id, override: nameOverride, dirty: true}
	w.lastName, w.lastState = w.Name(), w.state()
	return w
}

func (w *switchWidget) state() entity.SwitchState {
	if e, ok := w.entities.Get(w.id); ok {
		return e.Switch
	}
	return entity.SwitchUnknown
}

func (w *switchWidget) Name() string {
	if w.override != "" {
		return w.override
	}
	if e, ok := w.entities.Get(w.id); ok && e.Name != "" {
		return e.Name
	}
	return w.id
}

func (w *switchWidget) Full() bool       { return false }
func (w *switchWidget) Selectable() bool { return true }
func (w *switchWidget) Selected() bool   { return w.selected }

func (w *switchWidget) SetSelected(selected bool) {
	if selected != w.selected {
		w.dirty = true
	}
	w.selected = selected
}

func (w *switchWidget) Dirty() bool {
	return w.dirty || w.lastName != w.Name() || w.lastState != w.state()
}

func (w *switchWidget) MarkClean() {
	w.dirty = false
	w.lastName, w.lastState = w.Name(), w.state()
}

func (w *switchWidget) Height(int) int { return 1 }

func (w *switchWidget) Render(term Terminal, width int) {
	tag := "UNK"
	switch w.state() {
	case entity.SwitchOn:
		tag = "ON "
	case entity.SwitchOff:
		tag = "OFF"
	}

	term.SendCommand(vt100.CmdNormal)
	term.SendCommand(vt100.CmdBold)
	term.SendText(" " + tag + " ")
	term.SendCommand(vt100.CmdNormal)

	width -= 5
	if width <= 0 {
		return
	}

	left, right := " ", " "
	if w.selected {
		left, right = "[", "]"
	}
	term.SendText(runewidth.FillRight(truncate(left+w.Name()+right, width), width))
}

func (w *switchWidget) Toggle(ctx context.Context) error {
	return w.entities.Toggle(ctx, w.id)
}

// sensorWidget shows a read-only sensor reading
type sensorWidget struct {
	entities      EntitySource
	id            string
	override      string
	unitsOverride string

	dirty bool

	lastName, lastState, lastUnits string
}

func newSensorWidget(entities EntitySource, id, nameOverride, unitsOverride string) *sensorWidget {
	w := &sensorWidget{entities: entities, id: id, override: nameOverride, unitsOverride: unitsOverride, dirty: true}
	w.lastName, w.lastState, w.lastUnits = w.Name(), w.state(), w.units()
	return w
}

func (w *sensorWidget) Name() string {
	if w.override != "" {
		return w.override
	}
	if e, ok := w.entities.Get(w.id); ok && e.Name != "" {
		return e.Name
	}
	return w.id
}

func (w *sensorWidget) state() string {
	if e, ok := w.entities.Get(w.id); ok {
		return e.State
	}
	return ""
}

func (w *sensorWidget) units() string {
	if w.unitsOverride != "" {
		return w.unitsOverride
	}
	if e, ok := w.entities.Get(w.id); ok {
		return e.Units
	}
	return ""
}

// texts returns the padded name and the reading with units
func (w *sensorWidget) texts() (name, reading string) {
	reading = w.state()
	if reading == "" {
		reading = "UNK"
	}
	if units := w.units(); units != "" {
		reading += " " + units
	}
	return " " + w.Name() + " ", reading
}

func (w *sensorWidget) Full() bool                       { return false }
func (w *sensorWidget) Selectable() bool                 { return false }
func (w *sensorWidget) Selected() bool                   { return false }
func (w *sensorWidget) SetSelected(bool)                 {}
func (w *sensorWidget) Toggle(ctx context.Context) error { return nil }

func (w *sensorWidget) Dirty() bool {
	return w.dirty || w.lastName != w.Name() || w.lastState != w.state() || w.lastUnits != w.units()
}

func (w *sensorWidget) MarkClean() {
	w.dirty = false
	w.lastName, w.lastState, w.lastUnits = w.Name(), w.state(), w.units()
}

func (w *sensorWidget) wraps(width int) bool {
	name, reading := w.texts()
	return runewidth.StringWidth(name)+runewidth.StringWidth(reading) > width
}

func (w *sensorWidget) Height(width int) int {
	if w.wraps(width) {
		return 2
	}
	return 1
}

func (w *sensorWidget) Render(term Terminal, width int) {
	row, col := term.FetchCursor()
	name, reading := w.texts()

	term.SendCommand(vt100.CmdNormal)
	if w.wraps(width) {
		term.SendText(runewidth.FillRight(truncate(name, width), width))
		term.MoveCursor(row+1, col)
	} else {
		term.SendText(name)
		width -= runewidth.StringWidth(name)
	}

	reading = truncate(" "+reading+" ", width)
	term.SendCommand(vt100.CmdBold)
	term.SendText(reading)
	term.SendCommand(vt100.CmdNormal)
	fill(term, runewidth.StringWidth(reading), width)
}

// ruleWidget is a full-width horizontal line
type ruleWidget struct {
	static
}

func (w *ruleWidget) Name() string   { return "<hr>" }
func (w *ruleWidget) Full() bool     { return true }
func (w *ruleWidget) Height(int) int { return 1 }

func (w *ruleWidget) Render(term Terminal, width int) {
	term.SendText(strings.Repeat("─", max(width, 0)))
}

// labelWidget is a full-width caption
type labelWidget struct {
	static
	caption string
}

func (w *labelWidget) Name() string   { return "<label>" }
func (w *labelWidget) Full() bool     { return true }
func (w *labelWidget) Height(int) int { return 1 }

func (w *labelWidget) Render(term Terminal, width int) {
	term.SendText(truncate(w.caption, width))
}

// templateWidget shows its template text verbatim. No values are substituted.
type templateWidget struct {
	static
	text string
}

func (w *templateWidget) Name() string   { return "<template>" }
func (w *templateWidget) Full() bool     { return true }
func (w *templateWidget) Height(int) int { return 1 }

func (w *templateWidget) Render(term Terminal, width int) {
	term.SendText(truncate(w.text, width))
}

var helpLines = []string{
	"The following commands are available to use at any time:",
	"",
	"    prev",
	"        Display the previous tab.",
	"",
	"    next",
	"        Display the next tab.",
	"",
	"    toggle [SWITCH]",
	"        Toggle a displayed switch by name.",
	"",
	"    set cols=80|132",
	"        Switch the terminal width.",
	"",
	"    help",
	"        Display this help screen.",
	"",
	"    exit",
	"        Exit out of the dashboard interface.",
}

// helpWidget is the body of the synthetic Help page
type helpWidget struct {
	static
}

func (w *helpWidget) Name() string   { return "<help>" }
func (w *helpWidget) Full() bool     { return true }
func (w *helpWidget) Height(int) int { return len(helpLines) }

func (w *helpWidget) Render(term Terminal, width int) {
	row, col := term.FetchCursor()
	for _, line := range helpLines {
		term.MoveCursor(row, col)
		term.SendText(truncate(line, width))
		row++
	}
}
