package dashboard

import "github.com/muurk/vtdash/internal/vt100"

// Editor is the single-line command input on the bottom row. Every edit
// repaints only the cells it changed.
type Editor struct {
	term   Terminal
	buf    []byte
	cursor int // 1-indexed, in [1, len(buf)+1]
}

// NewEditor returns an empty editor drawing on term
func NewEditor(term Terminal) *Editor {
	return &Editor{term: term, cursor: 1}
}

// Text returns the current buffer
func (e *Editor) Text() string {
	return string(e.buf)
}

// Cursor returns the 1-indexed cursor column
func (e *Editor) Cursor() int {
	return e.cursor
}

// Reset empties the buffer without touching the screen
func (e *Editor) Reset() {
	e.buf = e.buf[:0]
	e.cursor = 1
}

func (e *Editor) row() int {
	return e.term.Rows()
}

// Home puts the terminal cursor back at the editor cursor
func (e *Editor) Home() {
	e.term.MoveCursor(e.row(), e.cursor)
}

// Left moves the cursor one column left. A no-op at the start of the line.
func (e *Editor) Left() {
	if e.cursor > 1 {
		e.cursor--
		e.Home()
	}
}

// Right moves the cursor one column right. A no-op past the last character.
func (e *Editor) Right() {
	if e.cursor < len(e.buf)+1 {
		e.cursor++
		e.Home()
	}
}

// Erase removes the character before the cursor
func (e *Editor) Erase() {
	if len(e.buf) == 0 || e.cursor == 1 {
		return
	}

	if e.cursor == len(e.buf)+1 {
		e.buf = e.buf[:len(e.buf)-1]
		e.cursor--
		e.Home()
		e.reverse()
		e.term.SendText(" ")
		e.Home()
		return
	}

	spot := e.cursor - 2
	e.buf = append(e.buf[:spot], e.buf[spot+1:]...)
	e.cursor--
	e.Home()
	e.reverse()
	e.term.SendText(string(e.buf[spot:]) + " ")
	e.Home()
}

// Insert adds printable ASCII at the cursor. Control bytes, non-ASCII and
// anything past columns-1 characters are dropped.
func (e *Editor) Insert(text string) {
	for i := 0; i < len(text); i++ {
		e.insertByte(text[i])
	}
}

func (e *Editor) insertByte(b byte) {
	if b < 0x20 || b >= 0x7f {
		return
	}
	if len(e.buf) >= e.term.Columns()-1 {
		return
	}

	row := e.row()
	if e.cursor == len(e.buf)+1 {
		e.buf = append(e.buf, b)
		e.reverse()
		e.term.SendText(string(b))
	} else {
		spot := e.cursor - 1
		e.buf = append(e.buf[:spot], append([]byte{b}, e.buf[spot:]...)...)
		e.reverse()
		e.term.SendText(string(e.buf[spot:]))
	}
	e.term.MoveCursor(row, e.cursor+1)
	e.cursor++
}

func (e *Editor) reverse() {
	e.term.SendCommand(vt100.CmdNormal)
	e.term.SendCommand(vt100.CmdReverse)
}
