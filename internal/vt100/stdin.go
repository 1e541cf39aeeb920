package vt100

import (
	"io"
	"os"
	"sync"
)

// stdin is shared by every local terminal the process opens. Only one
// goroutine ever reads os.Stdin; each OpenLocal attaches a fresh view and
// the previous view sees EOF.
var stdin = newInputMux(os.Stdin)

// inputMux hands the bytes of a single reader to whichever view is attached
type inputMux struct {
	r    io.Reader
	once sync.Once

	mu  sync.Mutex
	cur *inputView
	err error
}

func newInputMux(r io.Reader) *inputMux {
	return &inputMux{r: r}
}

// attach detaches the current view and returns a new one
func (m *inputMux) attach() *inputView {
	m.once.Do(func() { go m.readLoop() })

	v := &inputView{mux: m, data: make(chan []byte), done: make(chan struct{})}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.cur.detach()
	}
	if m.err != nil {
		v.fail(m.err)
		return v
	}
	m.cur = v
	return v
}

func (m *inputMux) current() *inputView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

func (m *inputMux) readLoop() {
	for {
		buf := make([]byte, readBufferSize)
		n, err := m.r.Read(buf)
		if n > 0 {
			m.deliver(buf[:n])
		}
		if err != nil {
			m.mu.Lock()
			m.err = err
			if m.cur != nil {
				m.cur.fail(err)
			}
			m.mu.Unlock()
			return
		}
	}
}

// deliver waits for the attached view to take chunk. Input that arrives with
// no view attached, or while the view detaches, is discarded.
func (m *inputMux) deliver(chunk []byte) {
	v := m.current()
	if v == nil {
		return
	}
	select {
	case v.data <- chunk:
	case <-v.done:
	}
}

// inputView is one terminal's reader over the shared input
type inputView struct {
	mux  *inputMux
	data chan []byte
	done chan struct{}
	stop sync.Once

	err  error
	rest []byte
}

func (v *inputView) Read(p []byte) (int, error) {
	if len(v.rest) == 0 {
		select {
		case chunk, ok := <-v.data:
			if !ok {
				return 0, v.err
			}
			v.rest = chunk
		case <-v.done:
			return 0, io.EOF
		}
	}
	n := copy(p, v.rest)
	v.rest = v.rest[n:]
	return n, nil
}

// Close detaches the view; a blocked Read returns io.EOF
func (v *inputView) Close() error {
	v.mux.mu.Lock()
	defer v.mux.mu.Unlock()
	if v.mux.cur == v {
		v.mux.cur = nil
	}
	v.detach()
	return nil
}

func (v *inputView) detach() {
	v.stop.Do(func() { close(v.done) })
}

// fail ends the view with the reader's error. Called with mux.mu held.
func (v *inputView) fail(err error) {
	v.stop.Do(func() {
		v.err = err
		close(v.data)
	})
}
