package vt100

// Key identifies the kind of an input Event
type Key int

const (
	// KeyNone is the zero event returned when input times out
	KeyNone Key = iota
	// KeyText carries literal bytes in Event.Text
	KeyText
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyBackspace
	KeyDelete
	// KeyInterrupt is Ctrl-C on a raw local TTY, where no SIGINT is raised
	KeyInterrupt
)

// Event is one decoded unit of keyboard input
type Event struct {
	Key  Key
	Text string
}

// IsZero reports whether e is the timeout event
func (e Event) IsZero() bool {
	return e.Key == KeyNone
}

const (
	keyEscape    = 0x1b
	keyCtrlC     = 0x03
	keyBackspace = 0x08
	keyDelete    = 0x7f
	keyXON       = 0x11
	keyXOFF      = 0x13
)

type decodeState int

const (
	stateGround decodeState = iota
	stateEscape             // saw ESC
	stateCSI                // saw ESC [ or ESC O
)

// decoder turns a byte stream into Events. It is fed by the reader
// goroutine only and holds no locks.
type decoder struct {
	state   decodeState
	pending []byte

	// crlf appends a synthetic LF after every CR
	crlf bool
	// interrupt maps Ctrl-C to KeyInterrupt
	interrupt bool
	// flow consumes XON/XOFF instead of emitting them
	flow func(paused bool)
}

func text(b ...byte) Event {
	return Event{Key: KeyText, Text: string(b)}
}

// feed decodes buf and appends the resulting events to out
func (d *decoder) feed(buf []byte, out []Event) []Event {
	for _, b := range buf {
		out = d.feedByte(b, out)
	}
	return out
}

func (d *decoder) feedByte(b byte, out []Event) []Event {
	if d.flow != nil && (b == keyXON || b == keyXOFF) {
		d.flow(b == keyXOFF)
		return out
	}

	switch d.state {
	case stateEscape:
		if b == '[' || b == 'O' {
			d.pending = append(d.pending, b)
			d.state = stateCSI
			return out
		}
		// Not a sequence we know; pass it through
		out = append(out, text(d.pending...))
		d.reset()
		return d.feedByte(b, out)

	case stateCSI:
		key := KeyNone
		switch b {
		case 'A':
			key = KeyUp
		case 'B':
			key = KeyDown
		case 'C':
			key = KeyRight
		case 'D':
			key = KeyLeft
		}
		if key != KeyNone {
			out = append(out, Event{Key: key})
			d.reset()
			return out
		}
		out = append(out, text(d.pending...))
		d.reset()
		return d.feedByte(b, out)
	}

	switch {
	case b == keyEscape:
		d.pending = append(d.pending, b)
		d.state = stateEscape
	case b == keyBackspace:
		out = append(out, Event{Key: KeyBackspace})
	case b == keyDelete:
		out = append(out, Event{Key: KeyDelete})
	case b == keyCtrlC && d.interrupt:
		out = append(out, Event{Key: KeyInterrupt})
	case b == '\r' && d.crlf:
		out = append(out, text('\r'), text('\n'))
	default:
		out = append(out, text(b))
	}
	return out
}

func (d *decoder) reset() {
	d.state = stateGround
	d.pending = d.pending[:0]
}
