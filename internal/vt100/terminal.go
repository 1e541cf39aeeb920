package vt100

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/muurk/vtdash/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultRows is the screen height of a VT-100
	DefaultRows = 24
	// DefaultColumns is the power-on width of a VT-100
	DefaultColumns = 80
	// WideColumns is the width after DECCOLM is set
	WideColumns = 132

	readBufferSize  = 256
	eventBufferSize = 128
)

// ErrTransportLost is returned by RecvInput once the underlying device can no
// longer be read or written. The caller is expected to rebuild the Terminal.
var ErrTransportLost = errors.New("terminal transport lost")

// Option configures a Terminal
type Option func(*Terminal)

// WithSize sets the initial geometry
func WithSize(rows, columns int) Option {
	return func(t *Terminal) {
		t.rows = rows
		t.columns = columns
	}
}

// WithSizeFunc reads the geometry from fn on every Rows/Columns call.
// The fixed geometry is used when fn fails.
func WithSizeFunc(fn func() (rows, columns int, err error)) Option {
	return func(t *Terminal) { t.sizeFn = fn }
}

// WithCRLF appends a synthetic LF to every CR read, for terminals whose
// Return key sends a bare CR
func WithCRLF() Option {
	return func(t *Terminal) { t.dec.crlf = true }
}

// WithInterrupt reports Ctrl-C as KeyInterrupt
func WithInterrupt() Option {
	return func(t *Terminal) { t.dec.interrupt = true }
}

// WithDECGraphics draws box characters through the DEC special graphics set
// and replaces any other non-ASCII rune with '?'
func WithDECGraphics() Option {
	return func(t *Terminal) { t.graphics = true }
}

// WithFlowControl honours XON/XOFF from the terminal
func WithFlowControl() Option {
	return func(t *Terminal) {
		t.flow = newFlowGate()
		t.dec.flow = t.flow.set
	}
}

// WithCloser closes c when the Terminal is closed
func WithCloser(c io.Closer) Option {
	return func(t *Terminal) { t.closer = c }
}

// withRestore runs fn after Reset and on Close
func withRestore(fn func() error) Option {
	return func(t *Terminal) { t.restore = fn }
}

// Terminal is a VT-100 class display plus keyboard.
// All methods except the background reader are meant for a single goroutine.
type Terminal struct {
	out    *bufio.Writer
	closer io.Closer

	restore     func() error
	restoreOnce sync.Once

	// err is the first write failure; every later write is dropped
	err error

	rows, columns int
	sizeFn        func() (int, int, error)

	// Shadow cursor, 1-indexed
	row, col           int
	savedRow, savedCol int

	graphics bool
	flow     *flowGate
	dec      decoder

	events  chan Event
	readErr error
	pending []Event
}

// New wraps rw as a Terminal and starts the input reader
func New(rw io.ReadWriter, opts ...Option) *Terminal {
	t := &Terminal{
		rows:     DefaultRows,
		columns:  DefaultColumns,
		row:      1,
		col:      1,
		savedRow: 1,
		savedCol: 1,
		events:   make(chan Event, eventBufferSize),
	}

	for _, opt := range opts {
		opt(t)
	}

	var w io.Writer = rw
	if t.flow != nil {
		w = &gatedWriter{w: rw, gate: t.flow}
	}
	t.out = bufio.NewWriterSize(&loggingWriter{w: w}, 4096)

	go t.readLoop(rw)
	return t
}

// readLoop decodes input until the reader fails, then closes the channel.
// Events that arrive while the queue is full are dropped.
func (t *Terminal) readLoop(r io.Reader) {
	buf := make([]byte, readBufferSize)
	var decoded []Event

	for {
		n, err := r.Read(buf)
		if n > 0 {
			logging.LogTerminalBytes("rx", buf[:n])
			decoded = t.dec.feed(buf[:n], decoded[:0])
			// never block here; an XON may be waiting behind the queued input
			for _, ev := range decoded {
				select {
				case t.events <- ev:
				default:
					logging.Warn("Input queue full, dropping event", zap.Int("key", int(ev.Key)), zap.String("text", ev.Text))
				}
			}
		}
		if err != nil {
			if t.flow != nil {
				t.flow.set(false)
			}
			t.readErr = err
			close(t.events)
			return
		}
	}
}

// Err returns the first write error, if any
func (t *Terminal) Err() error {
	return t.err
}

func (t *Terminal) write(s string) {
	if t.err != nil || s == "" {
		return
	}
	if _, err := t.out.WriteString(s); err != nil {
		t.err = err
	}
}

// Flush pushes buffered output to the device
func (t *Terminal) Flush() error {
	if t.err != nil {
		return t.err
	}
	if err := t.out.Flush(); err != nil {
		t.err = err
	}
	return t.err
}

func (t *Terminal) lost(cause error) error {
	return fmt.Errorf("%w: %v", ErrTransportLost, cause)
}

// RecvInput flushes pending output and waits up to timeout for one event.
// A timeout yields the zero Event and a nil error.
func (t *Terminal) RecvInput(timeout time.Duration) (Event, error) {
	if err := t.Flush(); err != nil {
		return Event{}, t.lost(err)
	}

	if len(t.pending) > 0 {
		ev := t.pending[0]
		t.pending = t.pending[1:]
		return ev, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev, ok := <-t.events:
		if !ok {
			return Event{}, t.lost(t.readErr)
		}
		return ev, nil
	case <-timer.C:
		return Event{}, nil
	}
}

// PeekInput returns the next event without consuming it and without blocking
func (t *Terminal) PeekInput() (Event, bool) {
	if len(t.pending) > 0 {
		return t.pending[0], true
	}

	select {
	case ev, ok := <-t.events:
		if !ok {
			return Event{}, false
		}
		t.pending = append(t.pending, ev)
		return ev, true
	default:
		return Event{}, false
	}
}

// Rows returns the screen height
func (t *Terminal) Rows() int {
	if t.sizeFn != nil {
		if rows, _, err := t.sizeFn(); err == nil && rows > 0 {
			return rows
		}
	}
	return t.rows
}

// Columns returns the screen width
func (t *Terminal) Columns() int {
	if t.sizeFn != nil {
		if _, columns, err := t.sizeFn(); err == nil && columns > 0 {
			return columns
		}
	}
	return t.columns
}

// MoveCursor positions the cursor at the 1-indexed row and column
func (t *Terminal) MoveCursor(row, col int) {
	t.write(cursorPosition(row, col))
	t.row, t.col = row, col
}

// FetchCursor returns the shadow cursor position
func (t *Terminal) FetchCursor() (row, col int) {
	return t.row, t.col
}

// SendText writes s at the cursor and advances the shadow cursor by its
// display width
func (t *Terminal) SendText(s string) {
	if t.graphics {
		t.write(encodeGraphics(s))
	} else {
		t.write(s)
	}
	t.col += runewidth.StringWidth(s)
}

// SendCommand writes a display control operation
func (t *Terminal) SendCommand(cmd Command) {
	t.write(cmd.Sequence())

	switch cmd {
	case CmdSaveCursor:
		t.savedRow, t.savedCol = t.row, t.col
	case CmdRestoreCursor:
		t.row, t.col = t.savedRow, t.savedCol
	case CmdMoveToOrigin:
		t.row, t.col = 1, 1
	}
}

// Set80Columns switches the terminal to 80 columns. DECCOLM clears the
// screen and homes the cursor.
func (t *Terminal) Set80Columns() {
	t.setColumns(seqColumns80, DefaultColumns)
}

// Set132Columns switches the terminal to 132 columns
func (t *Terminal) Set132Columns() {
	t.setColumns(seqColumns132, WideColumns)
}

func (t *Terminal) setColumns(seq string, columns int) {
	t.write(seq)
	t.columns = columns
	t.row, t.col = 1, 1
	logging.Info("Switched terminal width", zap.Int("columns", columns))
}

// Reset restores attributes, clears the screen, homes the cursor and
// returns the TTY to its original mode
func (t *Terminal) Reset() error {
	t.SendCommand(CmdNormal)
	t.SendCommand(CmdClearScreen)
	t.SendCommand(CmdMoveToOrigin)
	err := t.Flush()

	if rerr := t.restoreTTY(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func (t *Terminal) restoreTTY() error {
	var err error
	t.restoreOnce.Do(func() {
		if t.restore != nil {
			err = t.restore()
		}
	})
	return err
}

// Close restores the TTY and closes the device
func (t *Terminal) Close() error {
	err := t.restoreTTY()
	if t.closer != nil {
		if cerr := t.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// enableNewLineMode makes the Return key send CR LF
func (t *Terminal) enableNewLineMode() {
	t.write(seqNewLineMode)
}

// encodeGraphics maps '─' onto the DEC special graphics set and any other
// non-ASCII rune onto '?'
func encodeGraphics(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}

	var b strings.Builder
	inGraphics := false
	for _, r := range s {
		if r == '─' {
			if !inGraphics {
				b.WriteString(seqGraphicsOn)
				inGraphics = true
			}
			b.WriteByte(graphicsHLine)
			continue
		}
		if inGraphics {
			b.WriteString(seqGraphicsOff)
			inGraphics = false
		}
		if r >= 0x80 {
			b.WriteString(strings.Repeat("?", max(runewidth.RuneWidth(r), 1)))
		} else {
			b.WriteRune(r)
		}
	}
	if inGraphics {
		b.WriteString(seqGraphicsOff)
	}
	return b.String()
}

// loggingWriter dumps outgoing bytes at debug level
type loggingWriter struct {
	w io.Writer
}

func (l *loggingWriter) Write(p []byte) (int, error) {
	logging.LogTerminalBytes("tx", p)
	return l.w.Write(p)
}
