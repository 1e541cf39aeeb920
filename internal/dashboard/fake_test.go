package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muurk/vtdash/internal/config"
	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/vt100"
)

// fakeTerminal records every operation and keeps a character grid of what
// a real screen would show. Attributes are not tracked.
type fakeTerminal struct {
	rows, columns int

	row, col           int
	savedRow, savedCol int

	screen [][]rune
	ops    []string
}

func newFakeTerminal(rows, columns int) *fakeTerminal {
	f := &fakeTerminal{rows: rows, columns: columns, row: 1, col: 1, savedRow: 1, savedCol: 1}
	f.clearScreen()
	return f
}

func (f *fakeTerminal) Rows() int    { return f.rows }
func (f *fakeTerminal) Columns() int { return f.columns }

func (f *fakeTerminal) resize(rows, columns int) {
	f.rows, f.columns = rows, columns
	f.clearScreen()
}

func (f *fakeTerminal) MoveCursor(row, col int) {
	f.ops = append(f.ops, fmt.Sprintf("move %d,%d", row, col))
	f.row, f.col = row, col
}

func (f *fakeTerminal) FetchCursor() (int, int) {
	return f.row, f.col
}

func (f *fakeTerminal) SendText(s string) {
	f.ops = append(f.ops, fmt.Sprintf("text %q", s))
	for _, r := range s {
		if f.row >= 1 && f.row <= f.rows && f.col >= 1 && f.col <= f.columns {
			f.screen[f.row-1][f.col-1] = r
		}
		f.col += max(runewidth.RuneWidth(r), 1)
	}
}

func (f *fakeTerminal) SendCommand(cmd vt100.Command) {
	f.ops = append(f.ops, cmd.String())
	switch cmd {
	case vt100.CmdClearScreen:
		f.clearScreen()
	case vt100.CmdClearLine:
		if f.row >= 1 && f.row <= f.rows {
			f.screen[f.row-1] = blankRow(f.columns)
		}
	case vt100.CmdSaveCursor:
		f.savedRow, f.savedCol = f.row, f.col
	case vt100.CmdRestoreCursor:
		f.row, f.col = f.savedRow, f.savedCol
	case vt100.CmdMoveToOrigin:
		f.row, f.col = 1, 1
	}
}

func (f *fakeTerminal) clearScreen() {
	f.screen = make([][]rune, f.rows)
	for i := range f.screen {
		f.screen[i] = blankRow(f.columns)
	}
}

func blankRow(n int) []rune {
	row := make([]rune, n)
	for i := range row {
		row[i] = ' '
	}
	return row
}

// line returns a screen row without trailing blanks
func (f *fakeTerminal) line(row int) string {
	return strings.TrimRight(string(f.screen[row-1]), " ")
}

// writes returns the number of operations since the last forget
func (f *fakeTerminal) writes() int {
	return len(f.ops)
}

func (f *fakeTerminal) forget() {
	f.ops = nil
}

// fakeEntities is an in-memory EntitySource
type fakeEntities struct {
	byID      map[string]*entity.Entity
	toggleErr error
	toggled   []string
}

func newFakeEntities(entities ...*entity.Entity) *fakeEntities {
	f := &fakeEntities{byID: make(map[string]*entity.Entity)}
	for _, e := range entities {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEntities) Get(id string) (*entity.Entity, bool) {
	e, ok := f.byID[id]
	return e, ok
}

func (f *fakeEntities) Toggle(ctx context.Context, id string) error {
	f.toggled = append(f.toggled, id)
	if f.toggleErr != nil {
		return f.toggleErr
	}
	e, ok := f.byID[id]
	if !ok {
		return errors.New("unknown entity")
	}
	if e.Switch == entity.SwitchOn {
		e.Switch = entity.SwitchOff
	} else {
		e.Switch = entity.SwitchOn
	}
	return nil
}

func switchEntity(id, name string, state entity.SwitchState) *entity.Entity {
	return &entity.Entity{ID: id, Name: name, Kind: entity.KindSwitch, Switch: state}
}

func sensorEntity(id, name, state, units string) *entity.Entity {
	return &entity.Entity{ID: id, Name: name, Kind: entity.KindSensor, State: state, Units: units}
}

// layoutPage builds a config page from raw layout entries
func layoutPage(name string, entries ...string) config.Page {
	p := config.Page{Name: name}
	for _, e := range entries {
		p.Entities = append(p.Entities, config.WidgetEntry{Entity: e})
	}
	return p
}

func textEvent(s string) vt100.Event {
	return vt100.Event{Key: vt100.KeyText, Text: s}
}

// typeLine feeds s one byte at a time followed by a newline
func typeLine(ctx context.Context, d *Dashboard, s string) Action {
	for i := 0; i < len(s); i++ {
		d.ProcessInput(ctx, textEvent(s[i:i+1]))
	}
	return d.ProcessInput(ctx, textEvent("\n"))
}
