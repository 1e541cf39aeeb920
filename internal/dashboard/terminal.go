package dashboard

import (
	"context"

	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/vt100"
)

// Terminal is the display the dashboard draws on. *vt100.Terminal
// satisfies it; tests use a recording fake.
type Terminal interface {
	Rows() int
	Columns() int
	MoveCursor(row, col int)
	FetchCursor() (row, col int)
	SendText(s string)
	SendCommand(cmd vt100.Command)
}

// EntitySource resolves entity ids to their current state. Widgets hold ids,
// never entity pointers, and re-resolve on every dirty check and render.
type EntitySource interface {
	Get(id string) (*entity.Entity, bool)
	Toggle(ctx context.Context, id string) error
}

var (
	_ Terminal     = (*vt100.Terminal)(nil)
	_ EntitySource = (*entity.Store)(nil)
)
