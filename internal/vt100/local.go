package vt100

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// LocalPort is the terminal.port value that selects the local TTY
const LocalPort = "local"

// OpenLocal puts the controlling TTY into raw mode and drives it as the
// display. Geometry follows the window size. Reopening hands stdin over to
// the new terminal.
func OpenLocal() (*Terminal, error) {
	inFd := int(os.Stdin.Fd())
	outFd := int(os.Stdout.Fd())

	if !term.IsTerminal(inFd) || !term.IsTerminal(outFd) {
		return nil, errors.New("stdin and stdout must be a terminal")
	}

	state, err := term.MakeRaw(inFd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	in := stdin.attach()
	rw := struct {
		io.Reader
		io.Writer
	}{in, os.Stdout}

	return New(rw,
		WithCRLF(),
		WithInterrupt(),
		WithSizeFunc(func() (int, int, error) {
			columns, rows, err := term.GetSize(outFd)
			return rows, columns, err
		}),
		withRestore(func() error {
			return term.Restore(inFd, state)
		}),
		WithCloser(in),
	), nil
}
