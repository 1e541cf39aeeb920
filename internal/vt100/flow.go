package vt100

import (
	"io"
	"sync"
)

// flowGate pauses output between XOFF and XON
type flowGate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
}

func newFlowGate() *flowGate {
	g := &flowGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *flowGate) set(paused bool) {
	g.mu.Lock()
	g.paused = paused
	g.mu.Unlock()
	g.cond.Broadcast()
}

func (g *flowGate) wait() {
	g.mu.Lock()
	for g.paused {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// gatedWriter holds every write until the gate is open. Writes are split
// into small chunks so an XOFF takes effect mid-redraw.
type gatedWriter struct {
	w    io.Writer
	gate *flowGate
}

const flowChunk = 16

func (g *gatedWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		g.gate.wait()

		n := min(len(p), flowChunk)
		m, err := g.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}
