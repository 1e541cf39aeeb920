package vt100

import (
	"fmt"

	"github.com/charmbracelet/x/ansi"
)

// Command is a display control operation
type Command int

const (
	// CmdNormal clears every character attribute
	CmdNormal Command = iota
	CmdBold
	CmdReverse
	CmdClearScreen
	CmdClearLine
	CmdSaveCursor
	CmdRestoreCursor
	CmdMoveToOrigin
)

// String returns the command name for logs
func (c Command) String() string {
	switch c {
	case CmdNormal:
		return "normal"
	case CmdBold:
		return "bold"
	case CmdReverse:
		return "reverse"
	case CmdClearScreen:
		return "clear-screen"
	case CmdClearLine:
		return "clear-line"
	case CmdSaveCursor:
		return "save-cursor"
	case CmdRestoreCursor:
		return "restore-cursor"
	case CmdMoveToOrigin:
		return "move-to-origin"
	default:
		return fmt.Sprintf("Command(%d)", c)
	}
}

var (
	seqBold    = ansi.Style{}.Bold().String()
	seqReverse = ansi.Style{}.Reverse().String()
)

// Sequence returns the escape sequence for c
func (c Command) Sequence() string {
	switch c {
	case CmdNormal:
		return ansi.ResetStyle
	case CmdBold:
		return seqBold
	case CmdReverse:
		return seqReverse
	case CmdClearScreen:
		return ansi.EraseEntireScreen
	case CmdClearLine:
		return ansi.EraseEntireLine
	case CmdSaveCursor:
		return ansi.SaveCursor
	case CmdRestoreCursor:
		return ansi.RestoreCursor
	case CmdMoveToOrigin:
		return ansi.CursorHomePosition
	default:
		return ""
	}
}

// DEC private and VT-100 specific sequences
const (
	seqColumns132  = "\x1b[?3h" // DECCOLM set
	seqColumns80   = "\x1b[?3l" // DECCOLM reset
	seqNewLineMode = "\x1b[20h" // LNM: Return sends CR LF
	seqGraphicsOn  = "\x1b(0"   // G0 = DEC special graphics
	seqGraphicsOff = "\x1b(B"   // G0 = US ASCII
	graphicsHLine  = 'q'        // horizontal line in the special graphics set
)

// cursorPosition encodes CUP for a 1-indexed row and column
func cursorPosition(row, col int) string {
	return ansi.CursorPosition(col, row)
}
