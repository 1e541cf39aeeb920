package dashboard

// firstWidgetRow is the screen row below the title, tab bar and separators
const firstWidgetRow = 4

// GridColumns returns the number of widget columns for a terminal width.
// Exactly 80 columns gets two, anything else three.
func GridColumns(width int) int {
	if width == 80 {
		return 2
	}
	return 3
}

// Placement is where one widget lands on screen
type Placement struct {
	Row, Col int
	Width    int
	Height   int

	// Wrapped is set when the widget starts a new grid row
	Wrapped bool
}

// Bottom is the last screen row the widget occupies
func (p Placement) Bottom() int {
	return p.Row + p.Height - 1
}

// layout walks widgets left to right, top to bottom. The first widget
// always wraps onto row firstWidgetRow+1.
type layout struct {
	cols, colWidth, width int

	col, row, maxHeight int
}

func newLayout(width int) *layout {
	cols := GridColumns(width)
	return &layout{
		cols:      cols,
		colWidth:  width / cols,
		width:     width,
		col:       cols - 1,
		row:       firstWidgetRow,
		maxHeight: 1,
	}
}

// place returns the position of the next widget. onWrap is called with the
// first row of a new grid row and the height of the widget starting it,
// before that height is folded into the row.
func (l *layout) place(w Widget, onWrap func(row, height int)) Placement {
	width := l.colWidth
	if w.Full() {
		width = l.width
	}

	wrapped := false
	wrap := func() {
		l.col = 0
		l.row += l.maxHeight
		l.maxHeight = 0
		wrapped = true
		if onWrap != nil {
			onWrap(l.row, w.Height(width))
		}
	}

	l.col++
	if l.col >= l.cols {
		wrap()
	}
	if w.Full() && l.col != 0 {
		wrap()
	}

	height := w.Height(width)
	l.maxHeight = max(l.maxHeight, height)

	p := Placement{
		Row:     l.row,
		Col:     l.colWidth*l.col + 1,
		Width:   width,
		Height:  height,
		Wrapped: wrapped,
	}

	if w.Full() {
		l.col = l.cols - 1
	}
	return p
}

// Layout places widgets on a terminal width columns wide
func Layout(widgets []Widget, width int) []Placement {
	l := newLayout(width)
	out := make([]Placement, 0, len(widgets))
	for _, w := range widgets {
		out = append(out, l.place(w, nil))
	}
	return out
}
