package dashboard

import (
	"context"
	"strings"

	"github.com/muurk/vtdash/internal/config"
	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/logging"
	"github.com/muurk/vtdash/internal/vt100"
	"go.uber.org/zap"
)

const (
	titleRow = 1
	tabRow   = 3
)

// HelpPageName is the name of the page appended when help is enabled
const HelpPageName = "Help"

// Dashboard owns the screen: title, tab bar, the current page's widgets,
// the status line and the input line.
//
// Nothing is cached between redraws except the geometry it last drew at.
// A geometry change repaints everything; otherwise only dirty widgets are
// written.
type Dashboard struct {
	term     Terminal
	title    string
	showHelp bool

	pages   []*Page
	current int

	editor    *Editor
	lastError string

	lastRows, lastColumns int
}

// New binds the configured pages against entities. Layout entries naming
// an entity the source does not know are skipped.
func New(term Terminal, entities EntitySource, title string, layout []config.Page, showHelp bool) *Dashboard {
	d := &Dashboard{
		term:     term,
		title:    title,
		showHelp: showHelp,
		editor:   NewEditor(term),
	}

	for _, p := range layout {
		var widgets []Widget
		for _, spec := range p.Specs() {
			if w := buildWidget(entities, spec); w != nil {
				widgets = append(widgets, w)
			}
		}
		d.pages = append(d.pages, NewPage(p.Name, widgets))
	}

	if showHelp {
		d.pages = append(d.pages, NewPage(HelpPageName, []Widget{&helpWidget{}}))
	}

	term.MoveCursor(term.Rows(), 1)
	return d
}

func buildWidget(entities EntitySource, spec config.WidgetSpec) Widget {
	switch spec.Kind {
	case config.WidgetRule:
		return &ruleWidget{}
	case config.WidgetLabel:
		return &labelWidget{caption: spec.Text}
	case config.WidgetTemplate:
		return &templateWidget{text: spec.Text}
	}

	e, ok := entities.Get(spec.EntityID)
	if !ok {
		logging.Warn("Skipping unknown entity in layout", zap.String("entity_id", spec.EntityID))
		return nil
	}

	switch e.Kind {
	case entity.KindSwitch:
		return newSwitchWidget(entities, spec.EntityID, spec.Name)
	case entity.KindSensor:
		return newSensorWidget(entities, spec.EntityID, spec.Name, spec.Units)
	default:
		return newGenericWidget(spec.EntityID, spec.Name)
	}
}

// Pages returns all pages, including the help page
func (d *Dashboard) Pages() []*Page {
	return d.pages
}

// CurrentPage returns the index of the page on screen
func (d *Dashboard) CurrentPage() int {
	return d.current
}

func (d *Dashboard) page() *Page {
	if len(d.pages) == 0 {
		return &Page{}
	}
	return d.pages[d.current]
}

// Input returns the text on the input line
func (d *Dashboard) Input() string {
	return d.editor.Text()
}

// LastError returns the message on the status line
func (d *Dashboard) LastError() string {
	return d.lastError
}

// Draw brings the screen up to date
func (d *Dashboard) Draw() {
	rows, columns := d.term.Rows(), d.term.Columns()
	if rows != d.lastRows || columns != d.lastColumns {
		d.lastRows, d.lastColumns = rows, columns
		d.redraw(rows, columns)
		return
	}

	if !d.anyDirty() {
		return
	}

	d.term.SendCommand(vt100.CmdSaveCursor)
	defer d.term.SendCommand(vt100.CmdRestoreCursor)
	d.renderPage(false)
}

func (d *Dashboard) anyDirty() bool {
	for _, w := range d.page().Widgets {
		if w.Dirty() {
			return true
		}
	}
	return false
}

// redraw repaints the whole screen. The status line is painted inline:
// the terminal has a single cursor save slot and it is already in use.
func (d *Dashboard) redraw(rows, columns int) {
	d.term.SendCommand(vt100.CmdSaveCursor)
	defer func() {
		d.term.SendCommand(vt100.CmdRestoreCursor)
		// A resized local TTY moves the input row
		d.editor.Home()
	}()

	d.term.SendCommand(vt100.CmdClearScreen)

	d.term.MoveCursor(rows, 1)
	d.term.SendCommand(vt100.CmdNormal)
	d.term.SendCommand(vt100.CmdReverse)
	input := d.editor.Text()
	d.term.SendText(input)
	if len(input) < columns {
		d.term.SendText(strings.Repeat(" ", columns-len(input)))
	}

	d.paintStatus(d.lastError)

	d.term.SendCommand(vt100.CmdMoveToOrigin)
	d.term.SendCommand(vt100.CmdNormal)
	d.term.SendCommand(vt100.CmdBold)
	d.term.SendText(truncate(d.title, columns))
	d.term.SendCommand(vt100.CmdNormal)

	separator := strings.Repeat("─", columns)
	d.term.MoveCursor(titleRow+1, 1)
	d.term.SendText(separator)
	d.term.MoveCursor(firstWidgetRow, 1)
	d.term.SendText(separator)

	d.renderTabs()
}

// renderTabs draws the tab bar and then the whole current page
func (d *Dashboard) renderTabs() {
	d.term.MoveCursor(tabRow, 1)
	for i, p := range d.pages {
		d.term.SendCommand(vt100.CmdNormal)
		if i > 0 {
			d.term.SendText(" ")
		}
		d.term.SendCommand(vt100.CmdReverse)
		if i == d.current {
			d.term.SendCommand(vt100.CmdBold)
		}
		d.term.SendText(" " + p.Name + " ")
	}

	d.renderPage(true)
}

// renderPage lays out the current page and draws dirty widgets, or every
// widget when allDirty is set. With allDirty, rows are blanked as the
// layout reaches them and everything below the page is wiped.
//
// A widget whose height changes between incremental passes does not force
// its neighbours to repaint.
func (d *Dashboard) renderPage(allDirty bool) {
	d.term.SendCommand(vt100.CmdNormal)

	l := newLayout(d.term.Columns())
	var onWrap func(row, height int)
	if allDirty {
		onWrap = d.blankRows
	}

	maxDrawnRow := firstWidgetRow
	for _, w := range d.page().Widgets {
		p := l.place(w, onWrap)
		if !allDirty && !w.Dirty() {
			continue
		}
		d.term.MoveCursor(p.Row, p.Col)
		w.Render(d.term, p.Width)
		w.MarkClean()
		maxDrawnRow = max(maxDrawnRow, p.Row+l.maxHeight-1)
	}

	if allDirty {
		d.blankRows(maxDrawnRow+1, d.term.Rows()-2-maxDrawnRow)
	}
}

func (d *Dashboard) blankRows(row, count int) {
	for r := row; r < row+count; r++ {
		d.term.MoveCursor(r, 1)
		d.term.SendCommand(vt100.CmdClearLine)
	}
}

func (d *Dashboard) paintStatus(msg string) {
	d.term.MoveCursor(d.term.Rows()-1, 1)
	d.term.SendCommand(vt100.CmdClearLine)
	d.term.SendCommand(vt100.CmdNormal)
	d.term.SendCommand(vt100.CmdBold)
	d.term.SendText(truncate(msg, d.term.Columns()))
	d.term.SendCommand(vt100.CmdNormal)
}

// DisplayError shows msg on the status line. Nothing is written when msg is
// already displayed.
func (d *Dashboard) DisplayError(msg string) {
	if msg == d.lastError {
		return
	}

	d.term.SendCommand(vt100.CmdSaveCursor)
	d.paintStatus(msg)
	d.term.SendCommand(vt100.CmdRestoreCursor)
	d.lastError = msg
}

func (d *Dashboard) clearError() {
	d.DisplayError("")
}

// ClearInput clears the status line and empties the input line
func (d *Dashboard) ClearInput() {
	d.clearError()

	d.term.MoveCursor(d.term.Rows(), 1)
	d.term.SendCommand(vt100.CmdSaveCursor)
	d.term.SendCommand(vt100.CmdNormal)
	d.term.SendCommand(vt100.CmdReverse)
	d.term.SendText(strings.Repeat(" ", d.term.Columns()))
	d.term.SendCommand(vt100.CmdRestoreCursor)

	d.editor.Reset()
}

// switchPage moves to page index, clamped to the valid range, and repaints
// the tab bar and page if it changed
func (d *Dashboard) switchPage(index int) bool {
	index = max(0, min(index, len(d.pages)-1))
	if index == d.current {
		return false
	}
	d.current = index

	d.term.SendCommand(vt100.CmdSaveCursor)
	defer d.term.SendCommand(vt100.CmdRestoreCursor)
	d.renderTabs()
	return true
}

// ProcessInput applies one input event. It returns a non-nil Action when
// the session loop has to act.
func (d *Dashboard) ProcessInput(ctx context.Context, ev vt100.Event) Action {
	switch ev.Key {
	case vt100.KeyLeft:
		d.editor.Left()
	case vt100.KeyRight:
		d.editor.Right()
	case vt100.KeyUp:
		d.page().SelectPrevious()
	case vt100.KeyDown:
		d.page().SelectNext()
	case vt100.KeyBackspace, vt100.KeyDelete:
		d.editor.Erase()
	case vt100.KeyText:
		switch ev.Text {
		case ">":
			d.switchPage(d.current + 1)
		case "<":
			d.switchPage(d.current - 1)
		case "\r":
			// The LF that follows submits
		case "\n":
			return d.submit(ctx)
		default:
			d.editor.Insert(ev.Text)
		}
	}
	return nil
}

func (d *Dashboard) submit(ctx context.Context) Action {
	cmd := ParseCommand(d.editor.Text())

	switch cmd.Kind {
	case CommandActivate:
		if w := d.page().Selected(); w != nil {
			d.toggle(ctx, w)
		}

	case CommandExit:
		return ExitAction{}

	case CommandSet:
		if cmd.Key == "" {
			d.DisplayError("No setting requested!")
			return nil
		}
		return SettingAction{Setting: cmd.Key, Value: cmd.Value, HasValue: cmd.HasValue}

	case CommandToggle:
		if cmd.Arg == "" {
			d.DisplayError("No switch specified!")
			return nil
		}
		w := d.findSwitch(cmd.Arg)
		if w == nil {
			d.DisplayError("Unrecognized switch!")
			return nil
		}
		if d.toggle(ctx, w) {
			d.ClearInput()
		}

	case CommandNext:
		d.switchPage(d.current + 1)
		d.ClearInput()

	case CommandPrevious:
		d.switchPage(d.current - 1)
		d.ClearInput()

	case CommandHelp:
		if !d.showHelp {
			d.DisplayError("Unrecognized command help")
			return nil
		}
		d.switchPage(len(d.pages) - 1)
		d.ClearInput()

	default:
		d.DisplayError("Unrecognized command " + cmd.Arg)
	}
	return nil
}

// findSwitch matches name case-insensitively against the selectable widgets
// of the current page. An exact match wins; otherwise the name must be a
// substring of exactly one widget.
func (d *Dashboard) findSwitch(name string) Widget {
	name = strings.ToLower(name)
	candidates := d.page().Selectable()

	for _, w := range candidates {
		if strings.ToLower(w.Name()) == name {
			return w
		}
	}

	var found Widget
	for _, w := range candidates {
		if strings.Contains(strings.ToLower(w.Name()), name) {
			if found != nil {
				return nil
			}
			found = w
		}
	}
	return found
}

func (d *Dashboard) toggle(ctx context.Context, w Widget) bool {
	if err := w.Toggle(ctx); err != nil {
		logging.Warn("Failed to toggle switch", zap.String("name", w.Name()), zap.Error(err))
		d.DisplayError("Failed to toggle " + w.Name())
		return false
	}
	return true
}
