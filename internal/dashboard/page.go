package dashboard

// Page is one tab of the dashboard
type Page struct {
	Name    string
	Widgets []Widget
}

// NewPage builds a page and selects its first selectable widget
func NewPage(name string, widgets []Widget) *Page {
	p := &Page{Name: name, Widgets: widgets}
	for _, w := range widgets {
		if w.Selectable() {
			w.SetSelected(true)
			break
		}
	}
	return p
}

// neighbours returns the indexes of the selectable widgets immediately
// before and after the selected one, and of the selected one itself.
// Missing entries are -1.
func (p *Page) neighbours() (prev, cur, next int) {
	prev, cur, next = -1, -1, -1
	for i, w := range p.Widgets {
		if !w.Selectable() {
			continue
		}
		switch {
		case w.Selected():
			cur = i
		case cur == -1:
			prev = i
		case next == -1:
			next = i
		}
	}
	return prev, cur, next
}

// Selected returns the selected widget, or nil when the page has none
func (p *Page) Selected() Widget {
	if _, cur, _ := p.neighbours(); cur != -1 {
		return p.Widgets[cur]
	}
	return nil
}

// SelectPrevious moves the selection one selectable widget back.
// It reports false at the first selectable widget.
func (p *Page) SelectPrevious() bool {
	prev, cur, _ := p.neighbours()
	return p.moveSelection(cur, prev)
}

// SelectNext moves the selection one selectable widget forward.
// It reports false at the last selectable widget.
func (p *Page) SelectNext() bool {
	_, cur, next := p.neighbours()
	return p.moveSelection(cur, next)
}

func (p *Page) moveSelection(from, to int) bool {
	if from == -1 || to == -1 {
		return false
	}
	p.Widgets[from].SetSelected(false)
	p.Widgets[to].SetSelected(true)
	return true
}

// Selectable returns the widgets that can hold the selection, in order
func (p *Page) Selectable() []Widget {
	var out []Widget
	for _, w := range p.Widgets {
		if w.Selectable() {
			out = append(out, w)
		}
	}
	return out
}
