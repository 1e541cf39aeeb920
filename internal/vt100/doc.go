// Package vt100 drives a character-cell terminal: a VT-100 on a serial line
// or the local TTY.
//
// Output is buffered and only reaches the wire when the caller waits for
// input, so a whole redraw goes out in one write. The Terminal keeps a shadow
// copy of the cursor position; FetchCursor never costs a round trip.
//
// Input is decoded by a background reader into Events. Arrow keys arrive as
// KeyUp/KeyDown/KeyLeft/KeyRight, 0x08 as KeyBackspace and 0x7f as KeyDelete;
// every other byte is passed through as a KeyText event.
package vt100
