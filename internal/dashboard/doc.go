// Package dashboard is the rendering and interaction engine.
//
// A Dashboard owns a fixed screen layout:
//
//	row 1          title
//	row 2          separator
//	row 3          tab bar
//	row 4          separator
//	rows 5..R-2    widgets of the current page, in a 2 or 3 column grid
//	row R-1        status line
//	row R          input line
//
// Every byte sent to a serial VT-100 costs time, so the dashboard only
// repaints what changed. Widgets track a snapshot of what they last drew and
// report themselves dirty when the entity they show, or their selection,
// differs from it. Draw with nothing dirty writes nothing.
//
// # Input
//
// ProcessInput takes decoded terminal events. Left and Right move the input
// cursor, Up and Down move the selection, '>' and '<' switch pages, and a
// newline submits the input line to the command interpreter:
//
//	(empty)            toggle the selected switch
//	toggle NAME        toggle a switch on this page by name
//	next, n            next page
//	prev, p, previous  previous page
//	help               jump to the help page
//	set KEY[=VALUE]    returned to the caller as a SettingAction
//	exit               returned to the caller as an ExitAction
package dashboard
